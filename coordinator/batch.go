package coordinator

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gurre/smpager/driver"
	"github.com/gurre/smpager/operations"
	"github.com/gurre/smpager/sink"
)

// Request is one line of a batch input file.
type Request struct {
	Operation       string          `json:"operation"`
	Params          json.RawMessage `json:"params,omitempty"`
	Select          string          `json:"select,omitempty"`
	NextToken       string          `json:"nextToken,omitempty"`
	NoAutoIteration bool            `json:"noAutoIteration,omitempty"`
}

// ErrInvalidRequest is wrapped by every ParseRequest error.
var ErrInvalidRequest = errors.New("invalid batch request")

// ParseRequest decodes a batch line into a Job. A bound nextToken makes the
// job manual. Unknown parameter names are rejected.
func ParseRequest(line []byte) (Job, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	spec, ok := operations.Lookup(req.Operation)
	if !ok {
		return Job{}, fmt.Errorf("%w: unknown operation %q", ErrInvalidRequest, req.Operation)
	}

	params := spec.New()
	if len(req.Params) > 0 && !bytes.Equal(bytes.TrimSpace(req.Params), []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(req.Params))
		dec.DisallowUnknownFields()
		if err := dec.Decode(params); err != nil {
			return Job{}, fmt.Errorf("%w: %s params: %v", ErrInvalidRequest, spec.Name, err)
		}
	}

	sel, err := driver.ParseSelector(req.Select)
	if err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	return Job{
		Spec:     spec,
		Params:   params,
		Selector: sel,
		Cursor:   req.NextToken,
		Manual:   req.NoAutoIteration || req.NextToken != "",
	}, nil
}

// BatchSummary counts what a batch run did.
type BatchSummary struct {
	Lines     int // non-blank input lines
	Invalid   int // lines rejected before any call
	Sequences int // sequences that reached the driver
	Failed    int // sequences that ended with a failure envelope
}

// WorkerStatus tracks one batch worker for progress reporting.
type WorkerStatus struct {
	StartTime    time.Time
	LastActive   time.Time
	LastError    error
	CurrentLine  int
	CurrentOp    string
	Sequences    int64
	RecordsTotal int64
	ID           int
}

type batchLine struct {
	run  string // batch run id
	num  int
	data []byte
}

// RunBatch reads request lines from an s3:// or file:// URI and runs every
// line as an independent sequence on MaxWorkers goroutines. Lines are
// independent: an invalid line or a failed call is written to the sink as a
// failure record and the rest of the file continues. A sink error stops the
// run.
func (c *Coordinator) RunBatch(ctx context.Context, inputURI string) (BatchSummary, error) {
	read, err := c.lineReader(inputURI)
	if err != nil {
		return BatchSummary{}, err
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	runID := uuid.NewString()

	// One driver for every sequence. Checkpoints are not kept in batch mode.
	d := driver.New(driver.Config{Region: c.cfg.Region, Observers: []driver.Observer{c.metrics}})

	workers := max(c.cfg.MaxWorkers, 1)
	tasks := make(chan batchLine)
	statuses := make([]*WorkerStatus, workers)
	var statusMu sync.RWMutex
	update := func(id int, fn func(*WorkerStatus)) {
		statusMu.Lock()
		defer statusMu.Unlock()
		fn(statuses[id])
		statuses[id].LastActive = time.Now()
	}

	var (
		summaryMu sync.Mutex
		summary   BatchSummary
		wg        sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		statuses[i] = &WorkerStatus{ID: i, StartTime: time.Now()}
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for line := range tasks {
				update(id, func(s *WorkerStatus) { s.CurrentLine = line.num })
				res, err := c.runLine(ctx, d, line)
				summaryMu.Lock()
				summary.Lines++
				switch {
				case res.invalid:
					summary.Invalid++
				case res.failed:
					summary.Sequences++
					summary.Failed++
				default:
					summary.Sequences++
				}
				summaryMu.Unlock()
				update(id, func(s *WorkerStatus) {
					s.CurrentOp = res.operation
					s.Sequences++
					s.RecordsTotal += int64(res.records)
					if res.err != nil {
						s.LastError = res.err
					}
				})
				if err != nil {
					cancel(fmt.Errorf("worker %d: line %d: %w", id, line.num, err))
					return
				}
			}
		}(i)
	}

	progressCtx, stopProgress := context.WithCancel(ctx)
	go c.reportProgress(progressCtx, statuses, &statusMu)

	readErr := read(ctx, func(num int, data []byte) error {
		select {
		case tasks <- batchLine{run: runID, num: num, data: data}:
			return nil
		case <-ctx.Done():
			return context.Cause(ctx)
		}
	})
	close(tasks)
	wg.Wait()
	stopProgress()

	c.logger.Info().
		Str("run_id", runID).
		Int("lines", summary.Lines).
		Int("invalid", summary.Invalid).
		Int("sequences", summary.Sequences).
		Int("failed", summary.Failed).
		Msg("Batch finished")

	if cause := context.Cause(ctx); cause != nil {
		return summary, cause
	}
	if readErr != nil {
		return summary, fmt.Errorf("failed to read %s: %w", inputURI, readErr)
	}
	return summary, nil
}

type lineResult struct {
	operation string
	records   int
	invalid   bool
	failed    bool
	err       error // reported problem with the line, not fatal
}

// runLine runs one batch line. The returned error is fatal to the batch.
func (c *Coordinator) runLine(ctx context.Context, d *driver.Driver, line batchLine) (lineResult, error) {
	job, err := ParseRequest(line.data)
	if err != nil {
		return c.reject(ctx, line, "batch", err)
	}
	if err := validate(ctx, job); err != nil {
		return c.reject(ctx, line, job.Spec.Name, err)
	}
	if err := c.check(ctx, job.Spec); err != nil {
		return c.reject(ctx, line, job.Spec.Name, err)
	}

	out, err := c.run(ctx, d, job, job.Cursor)
	res := lineResult{operation: job.Spec.Name, records: out.Records, failed: out.Failure != nil}
	if out.Failure != nil {
		res.err = out.Failure
	}
	return res, err
}

// reject reports a line that never reached the driver. Its record is keyed by
// the run id and line number.
func (c *Coordinator) reject(ctx context.Context, line batchLine, operation string, cause error) (lineResult, error) {
	c.logger.Warn().
		Err(cause).
		Int("line", line.num).
		Str("operation", operation).
		Msg("Rejected batch line")
	c.metrics.RecordFailure(operation)

	rec := sink.Record{
		SequenceID: fmt.Sprintf("%s-line-%d", line.run, line.num),
		Operation:  operation,
		Page:       1,
		Error:      cause.Error(),
		EmittedAt:  time.Now().UTC(),
	}
	if err := c.sink.Write(ctx, rec); err != nil {
		return lineResult{operation: operation, invalid: true, err: cause}, fmt.Errorf("failed to write result: %w", err)
	}
	c.metrics.RecordWritten()
	return lineResult{operation: operation, records: 1, invalid: true, err: cause}, nil
}

// reportProgress logs aggregated worker progress every five seconds.
func (c *Coordinator) reportProgress(ctx context.Context, statuses []*WorkerStatus, mu *sync.RWMutex) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mu.RLock()
			var sequences, records int64
			active := 0
			for _, s := range statuses {
				if time.Since(s.LastActive) < 10*time.Second {
					active++
				}
				sequences += s.Sequences
				records += s.RecordsTotal
			}
			mu.RUnlock()

			c.logger.Info().
				Int64("sequences", sequences).
				Int64("records", records).
				Int("active_workers", active).
				Msg("Progress")

		case <-ctx.Done():
			return
		}
	}
}

type readFunc func(ctx context.Context, fn func(num int, data []byte) error) error

// lineReader returns a reader for the batch input. Blank lines are skipped and
// every delivered line is a private copy.
func (c *Coordinator) lineReader(inputURI string) (readFunc, error) {
	u, err := url.Parse(inputURI)
	if err != nil {
		return nil, fmt.Errorf("invalid input URI: %w", err)
	}

	deliver := func(fn func(int, []byte) error) func([]byte) error {
		num := 0
		return func(raw []byte) error {
			num++
			line := bytes.TrimSpace(raw)
			if len(line) == 0 {
				return nil
			}
			return fn(num, bytes.Clone(line))
		}
	}

	switch u.Scheme {
	case "s3":
		if c.streamer == nil {
			return nil, fmt.Errorf("no S3 streamer configured for %s", inputURI)
		}
		bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
		if bucket == "" || key == "" {
			return nil, fmt.Errorf("invalid input URI %s: bucket and key are required", inputURI)
		}
		return func(ctx context.Context, fn func(int, []byte) error) error {
			next := deliver(fn)
			return c.streamer.Stream(ctx, bucket, key, 0, func(line []byte, _ int64) error {
				return next(line)
			})
		}, nil
	case "file":
		path := u.Path
		if path == "" {
			return nil, fmt.Errorf("invalid input URI %s: path is required", inputURI)
		}
		return func(ctx context.Context, fn func(int, []byte) error) error {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			next := deliver(fn)
			scanner := bufio.NewScanner(f)
			scanner.Buffer(make([]byte, 64*1024), 1024*1024)
			for scanner.Scan() {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := next(scanner.Bytes()); err != nil {
					return err
				}
			}
			return scanner.Err()
		}, nil
	default:
		return nil, fmt.Errorf("unsupported input URI scheme %q", u.Scheme)
	}
}
