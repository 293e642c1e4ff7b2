package driver

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// NameResolutionError is returned when the service endpoint host could not be
// resolved. It usually means a wrong region or a broken network setup rather
// than a service problem.
type NameResolutionError struct {
	Service   string
	Operation string
	Region    string
	Host      string
	Err       error
}

// Error implements the error interface.
func (e *NameResolutionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "name resolution failure attempting to reach %s for %s", e.Service, e.Operation)
	if e.Host != "" {
		fmt.Fprintf(&b, " at %s", e.Host)
	}
	if e.Region != "" {
		fmt.Fprintf(&b, " in region %s (check --region or SMPAGER_REGION)", e.Region)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *NameResolutionError) Unwrap() error {
	return e.Err
}

// classify re-wraps DNS failures buried in the SDK error chain. Every other
// error is returned unchanged.
func (d *Driver) classify(operation string, err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &NameResolutionError{
			Service:   d.service,
			Operation: operation,
			Region:    d.region,
			Host:      dnsErr.Name,
			Err:       err,
		}
	}
	return err
}
