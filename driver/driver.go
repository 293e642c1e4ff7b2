// Package driver implements the paginated invocation driver shared by every
// smpager operation. A driver call runs one invocation sequence: it sends the
// request, emits a projected value per page, threads the continuation cursor
// into the next request and stops when the service reports no more pages or
// the caller asked to control paging manually.
//
// Example:
//
//	d := driver.New(driver.Config{Region: "eu-west-1"})
//	results := driver.Paginate(ctx, d, driver.Invocation[sagemaker.ListModelsInput, sagemaker.ListModelsOutput]{
//	    Operation:  op,
//	    Input:      &sagemaker.ListModelsInput{},
//	    Projection: proj,
//	})
//	for r := range results {
//	    if err := r.Err(); err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(r.Value)
//	}
package driver

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/gurre/smpager/logging"
	"github.com/rs/zerolog"
)

// DefaultService names the remote service in errors and logs.
const DefaultService = "SageMaker"

// Operation binds one remote API call to the driver. SetCursor and NextCursor
// are nil for single-call operations, which then run exactly once.
type Operation[In, Out any] struct {
	Name       string
	Call       func(ctx context.Context, in *In) (*Out, error)
	SetCursor  func(in *In, cursor *string)
	NextCursor func(out *Out) *string
}

// Paginated reports whether the operation carries a continuation cursor.
func (o Operation[In, Out]) Paginated() bool {
	return o.SetCursor != nil && o.NextCursor != nil
}

// Invocation is everything one invocation sequence needs. Input must already
// carry every filter and shape field; only the cursor field is written by the
// driver.
type Invocation[In, Out any] struct {
	Operation  Operation[In, Out]
	Input      *In
	Cursor     string // starting cursor, empty for the first page
	Manual     bool   // caller controls paging: exactly one call
	Projection Projection[Out]
	SequenceID string // generated when empty
}

// PageEvent describes one completed remote call.
type PageEvent struct {
	SequenceID string
	Operation  string
	Page       int
	Cursor     string // cursor sent with the call
	NextCursor string // cursor returned by the call
	Last       bool   // no further call follows
	Duration   time.Duration
	Err        error
}

// Observer receives a PageEvent after every remote call, successful or not.
type Observer interface {
	Observe(ctx context.Context, ev PageEvent)
}

// Config configures a Driver.
type Config struct {
	Service   string // defaults to DefaultService
	Region    string // reported in name resolution failures
	Observers []Observer
}

// Driver holds the per-process settings shared by all invocation sequences.
// It carries no per-sequence state and is safe for concurrent use.
type Driver struct {
	service   string
	region    string
	observers []Observer
	logger    zerolog.Logger
}

// New creates a Driver.
func New(cfg Config) *Driver {
	service := cfg.Service
	if service == "" {
		service = DefaultService
	}
	return &Driver{
		service:   service,
		region:    cfg.Region,
		observers: cfg.Observers,
		logger:    logging.NewLogger("driver"),
	}
}

// Paginate returns the lazily produced results of one invocation sequence.
// Nothing is sent until the sequence is ranged over, and every page is handed
// to the consumer before the next call is issued. Breaking out of the range
// stops the sequence without further calls.
func Paginate[In, Out any](ctx context.Context, d *Driver, inv Invocation[In, Out]) iter.Seq[Result] {
	return func(yield func(Result) bool) {
		op := inv.Operation
		seqID := inv.SequenceID
		if seqID == "" {
			seqID = uuid.NewString()
		}
		logger := d.logger.With().
			Str("operation", op.Name).
			Str("sequence_id", seqID).
			Logger()

		mode := inv.Projection.Mode()
		cursor := inv.Cursor
		page := 0

		for {
			page++

			if err := ctx.Err(); err != nil {
				yield(Result{
					SequenceID: seqID,
					Operation:  op.Name,
					Page:       page,
					Failure:    &Failure{Operation: op.Name, Page: page, Cursor: cursor, Err: err},
				})
				return
			}

			if op.Paginated() {
				op.SetCursor(inv.Input, optional(cursor))
			}

			start := time.Now()
			out, err := op.Call(ctx, inv.Input)
			elapsed := time.Since(start)

			if err != nil {
				err = d.classify(op.Name, err)
				d.notify(ctx, PageEvent{
					SequenceID: seqID,
					Operation:  op.Name,
					Page:       page,
					Cursor:     cursor,
					Last:       true,
					Duration:   elapsed,
					Err:        err,
				})
				d.logFailure(logger, page, cursor, err)
				yield(Result{
					SequenceID: seqID,
					Operation:  op.Name,
					Page:       page,
					Failure:    &Failure{Operation: op.Name, Page: page, Cursor: cursor, Err: err},
				})
				return
			}

			next := ""
			if op.Paginated() {
				if p := op.NextCursor(out); p != nil {
					next = *p
				}
			}
			last := inv.Manual || next == "" || !op.Paginated()

			logger.Debug().
				Int("page", page).
				Str("cursor", cursor).
				Bool("more", next != "").
				Dur("duration", elapsed).
				Msg("Call complete")

			d.notify(ctx, PageEvent{
				SequenceID: seqID,
				Operation:  op.Name,
				Page:       page,
				Cursor:     cursor,
				NextCursor: next,
				Last:       last,
				Duration:   elapsed,
			})

			if mode != EchoParameter {
				r := Result{
					SequenceID: seqID,
					Operation:  op.Name,
					Page:       page,
					Value:      inv.Projection.Apply(out),
				}
				if last && mode == WholeResponse {
					r.NextCursor = next
				}
				if !yield(r) {
					return
				}
			}

			if last {
				break
			}
			cursor = next
		}

		if mode == EchoParameter {
			yield(Result{
				SequenceID: seqID,
				Operation:  op.Name,
				Page:       page,
				Value:      inv.Projection.Apply(nil),
			})
		}
	}
}

// notify fans a page event out to every observer.
func (d *Driver) notify(ctx context.Context, ev PageEvent) {
	for _, o := range d.observers {
		o.Observe(ctx, ev)
	}
}

func (d *Driver) logFailure(logger zerolog.Logger, page int, cursor string, err error) {
	ev := logger.Warn().Err(err).Int("page", page).Str("cursor", cursor)
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		ev = ev.Str("error_code", apiErr.ErrorCode()).Str("fault", apiErr.ErrorFault().String())
	}
	ev.Msg("Call failed")
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
