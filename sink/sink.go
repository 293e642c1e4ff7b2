// Package sink delivers emitted results to their destination: JSON lines on
// stdout, or items in a DynamoDB table.
package sink

import (
	"context"
	"time"

	"github.com/gurre/smpager/driver"
)

// Record is one emitted result in transport form. Exactly one of Value and
// Error is meaningful.
type Record struct {
	SequenceID string    `json:"sequenceId"`
	Operation  string    `json:"operation"`
	Page       int       `json:"page"`
	Value      any       `json:"value,omitempty"`
	NextCursor string    `json:"nextCursor,omitempty"`
	Error      string    `json:"error,omitempty"`
	EmittedAt  time.Time `json:"emittedAt"`
}

// Failed reports whether the record carries a failure envelope.
func (r Record) Failed() bool {
	return r.Error != ""
}

// FromResult converts a driver result.
func FromResult(r driver.Result) Record {
	rec := Record{
		SequenceID: r.SequenceID,
		Operation:  r.Operation,
		Page:       r.Page,
		Value:      r.Value,
		NextCursor: r.NextCursor,
		EmittedAt:  time.Now().UTC(),
	}
	if r.Failure != nil {
		rec.Value = nil
		rec.Error = r.Failure.Error()
	}
	return rec
}

// Sink receives records from one or more concurrent sequences.
// Implementations must be safe for concurrent use.
type Sink interface {
	Write(ctx context.Context, rec Record) error
	Flush(ctx context.Context) error
}
