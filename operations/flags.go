package operations

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

// Flags are read only when the caller set them, so a flag's zero value never
// reaches a request.

func bindString(c *cli.Context, name string, dst **string) {
	if c.IsSet(name) {
		v := c.String(name)
		*dst = &v
	}
}

func bindInt32(c *cli.Context, name string, dst **int32) {
	if c.IsSet(name) {
		v := int32(c.Int(name))
		*dst = &v
	}
}

func bindBool(c *cli.Context, name string, dst **bool) {
	if c.IsSet(name) {
		v := c.Bool(name)
		*dst = &v
	}
}

func bindStrings(c *cli.Context, name string, dst *[]string) {
	if c.IsSet(name) {
		*dst = c.StringSlice(name)
	}
}

// bindTime parses an RFC 3339 timestamp.
func bindTime(c *cli.Context, name string, dst **time.Time) error {
	if !c.IsSet(name) {
		return nil
	}
	v, err := time.Parse(time.RFC3339, c.String(name))
	if err != nil {
		return fmt.Errorf("--%s must be an RFC 3339 timestamp: %w", name, err)
	}
	*dst = &v
	return nil
}

// bindMap parses repeated key=value flags.
func bindMap(c *cli.Context, name string, dst *map[string]string) error {
	if !c.IsSet(name) {
		return nil
	}
	m := make(map[string]string)
	for _, pair := range c.StringSlice(name) {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return fmt.Errorf("--%s expects key=value, got %q", name, pair)
		}
		m[k] = v
	}
	*dst = m
	return nil
}

// sortedKeys gives map-derived request lists a stable order.
func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func timeFlag(name, usage string) cli.Flag {
	return &cli.StringFlag{Name: name, Usage: usage + " (RFC 3339)"}
}

func sortOrderFlag(values string) cli.Flag {
	return &cli.StringFlag{Name: "sort-order", Usage: "Sort order: " + values}
}

func maxResultsFlag() cli.Flag {
	return &cli.IntFlag{Name: "max-results", Usage: "Maximum number of results per page"}
}
