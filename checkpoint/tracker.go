package checkpoint

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gurre/smpager/driver"
	"github.com/gurre/smpager/logging"
	"github.com/rs/zerolog"
)

// Tracker is a driver.Observer that saves the cursor after every call. A
// failed call keeps the cursor it was sent with, so the next run retries the
// same page.
type Tracker struct {
	store   Store
	request string
	logger  zerolog.Logger

	mu    sync.Mutex
	base  int // pages completed by earlier runs
	state State
	err   error
}

// NewTracker creates a Tracker saving states for the request fingerprint.
// Pass the State returned by Resume so page numbers continue across runs;
// pass the zero State for a fresh sequence.
func NewTracker(store Store, from State, request string) *Tracker {
	return &Tracker{
		store:   store,
		request: request,
		logger:  logging.NewLogger("checkpoint"),
		base:    from.Pages,
		state:   from,
	}
}

// Observe implements driver.Observer.
func (t *Tracker) Observe(ctx context.Context, ev driver.PageEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := State{
		SequenceID: ev.SequenceID,
		Operation:  ev.Operation,
		Request:    t.request,
		UpdatedAt:  time.Now().UTC(),
	}
	if ev.Err != nil {
		st.Cursor = ev.Cursor
		st.Pages = t.base + ev.Page - 1
	} else {
		st.Cursor = ev.NextCursor
		st.Pages = t.base + ev.Page
		st.Done = ev.NextCursor == ""
	}
	t.state = st

	// Progress must be saved even when the run is being cancelled.
	if err := t.store.Save(context.WithoutCancel(ctx), st); err != nil {
		t.err = fmt.Errorf("checkpoint after page %d: %w", st.Pages, err)
		t.logger.Warn().Err(err).
			Str("operation", st.Operation).
			Int("pages", st.Pages).
			Msg("Failed to save checkpoint")
	}
}

// State returns the last state handed to the store.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Err returns the most recent save failure, if any.
func (t *Tracker) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Resume loads the checkpoint and reports whether it can continue the
// request identified by operation and fingerprint.
func Resume(ctx context.Context, store Store, operation, request string) (State, bool, error) {
	st, err := store.Load(ctx)
	if err != nil {
		return State{}, false, err
	}
	if !st.Resumable(operation, request) {
		return State{}, false, nil
	}
	return st, true, nil
}
