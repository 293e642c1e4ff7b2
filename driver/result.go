package driver

import "fmt"

// Result is one item of an invocation sequence: either a projected value or a
// failure envelope. A sequence never continues after a failure.
type Result struct {
	SequenceID string
	Operation  string
	Page       int
	Value      any
	NextCursor string   // last observed cursor, set on the final item of a whole-response sequence
	Failure    *Failure // non-nil when the call for this page failed
}

// Err returns the failure envelope as an error, or nil for a successful item.
func (r Result) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}

// Failure is the envelope emitted in place of a value when a call fails.
// It keeps the original error for errors.Is/As.
type Failure struct {
	Operation string
	Page      int
	Cursor    string // cursor sent with the failed call
	Err       error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Cursor != "" {
		return fmt.Sprintf("%s page %d (cursor %q) failed: %v", f.Operation, f.Page, f.Cursor, f.Err)
	}
	return fmt.Sprintf("%s page %d failed: %v", f.Operation, f.Page, f.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (f *Failure) Unwrap() error {
	return f.Err
}
