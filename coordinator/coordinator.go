// Package coordinator runs invocation sequences end to end: preflight,
// checkpoint resume, the driver, the output sink and the final report. Single
// commands go through RunOne; batch files go through RunBatch, which spreads
// independent sequences over a worker pool.
package coordinator

import (
	"context"
	"fmt"

	"github.com/gurre/s3streamer"
	"github.com/gurre/smpager/aws"
	"github.com/gurre/smpager/checkpoint"
	"github.com/gurre/smpager/config"
	"github.com/gurre/smpager/driver"
	"github.com/gurre/smpager/logging"
	"github.com/gurre/smpager/metrics"
	"github.com/gurre/smpager/operations"
	"github.com/gurre/smpager/sink"
	"github.com/rs/zerolog"
)

// ReportUploader uploads reports to S3.
type ReportUploader interface {
	UploadReport(ctx context.Context, uri string, report metrics.Report) error
}

// Preflight verifies that the configured principal may call the actions.
type Preflight interface {
	Check(ctx context.Context, actions ...string) error
}

// Job is one invocation sequence to run.
type Job struct {
	Spec     operations.Spec
	Params   operations.Params
	Selector driver.Selector
	Cursor   string // bound starting cursor
	Manual   bool   // caller controls paging; set whenever Cursor is bound
}

// Outcome summarizes a finished sequence.
type Outcome struct {
	SequenceID string
	Operation  string
	Pages      int
	Records    int
	Failure    *driver.Failure // set when the sequence ended with a failure envelope
}

// Deps are the collaborators of a Coordinator. Store, Preflight, Uploader
// and Streamer are optional.
type Deps struct {
	Client    aws.SageMakerClient
	Sink      sink.Sink
	Metrics   *metrics.Metrics
	Store     checkpoint.Store
	Preflight Preflight
	Uploader  ReportUploader
	Streamer  s3streamer.Streamer
}

// Coordinator is built once per process.
type Coordinator struct {
	cfg       *config.Config
	client    aws.SageMakerClient
	sink      sink.Sink
	metrics   *metrics.Metrics
	store     checkpoint.Store
	preflight Preflight
	uploader  ReportUploader
	streamer  s3streamer.Streamer
	logger    zerolog.Logger
}

// NewCoordinator creates a Coordinator. A nil Metrics is replaced by a fresh one.
func NewCoordinator(cfg *config.Config, deps Deps) *Coordinator {
	m := deps.Metrics
	if m == nil {
		m = metrics.NewMetrics()
	}
	return &Coordinator{
		cfg:       cfg,
		client:    deps.Client,
		sink:      deps.Sink,
		metrics:   m,
		store:     deps.Store,
		preflight: deps.Preflight,
		uploader:  deps.Uploader,
		streamer:  deps.Streamer,
		logger:    logging.NewLogger("coordinator"),
	}
}

// Metrics returns the run's counters.
func (c *Coordinator) Metrics() *metrics.Metrics {
	return c.metrics
}

// RunOne runs a single sequence. When a checkpoint store is configured and
// the job has no bound cursor, an unfinished checkpoint for the same
// operation and parameters supplies the starting cursor, and progress is
// saved after every call. The returned error covers configuration, sink and
// checkpoint problems; a failed call is reported through Outcome.Failure.
func (c *Coordinator) RunOne(ctx context.Context, job Job) (Outcome, error) {
	if err := validate(ctx, job); err != nil {
		return Outcome{}, err
	}
	if err := c.check(ctx, job.Spec); err != nil {
		return Outcome{}, err
	}

	observers := []driver.Observer{c.metrics}
	cursor := job.Cursor
	var tracker *checkpoint.Tracker
	if c.store != nil {
		request, err := operations.Fingerprint(job.Spec, job.Params)
		if err != nil {
			return Outcome{}, err
		}
		var from checkpoint.State
		if cursor == "" {
			st, ok, err := checkpoint.Resume(ctx, c.store, job.Spec.Name, request)
			if err != nil {
				return Outcome{}, fmt.Errorf("failed to load checkpoint: %w", err)
			}
			if ok {
				from = st
				cursor = st.Cursor
				c.logger.Info().
					Str("operation", job.Spec.Name).
					Int("pages", st.Pages).
					Str("cursor", st.Cursor).
					Msg("Resuming from checkpoint")
			}
		}
		tracker = checkpoint.NewTracker(c.store, from, request)
		observers = append(observers, tracker)
	}

	d := driver.New(driver.Config{Region: c.cfg.Region, Observers: observers})
	out, err := c.run(ctx, d, job, cursor)
	if err != nil {
		return out, err
	}
	if tracker != nil {
		if err := tracker.Err(); err != nil {
			return out, fmt.Errorf("failed to save checkpoint: %w", err)
		}
	}
	return out, nil
}

// validate resolves the selector and paging options without calling the
// service. Invoke is lazy, so the discarded sequence never runs.
func validate(ctx context.Context, job Job) error {
	_, err := job.Params.Invoke(ctx, operations.Call{
		Selector: job.Selector,
		Cursor:   job.Cursor,
		Manual:   job.Manual,
	})
	return err
}

func (c *Coordinator) check(ctx context.Context, spec operations.Spec) error {
	if c.preflight == nil {
		return nil
	}
	if err := c.preflight.Check(ctx, spec.Action()); err != nil {
		return fmt.Errorf("preflight: %w", err)
	}
	return nil
}

// run drives one sequence and hands every result to the sink as soon as it
// is emitted.
func (c *Coordinator) run(ctx context.Context, d *driver.Driver, job Job, cursor string) (Outcome, error) {
	results, err := job.Params.Invoke(ctx, operations.Call{
		Client:   c.client,
		Driver:   d,
		Selector: job.Selector,
		Cursor:   cursor,
		Manual:   job.Manual,
	})
	if err != nil {
		return Outcome{}, err
	}
	c.metrics.RecordSequence()

	out := Outcome{Operation: job.Spec.Name}
	for r := range results {
		out.SequenceID = r.SequenceID
		out.Records++
		if r.Failure != nil {
			out.Failure = r.Failure
			c.metrics.RecordFailure(r.Operation)
		} else {
			out.Pages = r.Page
		}
		if err := c.sink.Write(ctx, sink.FromResult(r)); err != nil {
			return out, fmt.Errorf("failed to write result: %w", err)
		}
		c.metrics.RecordWritten()
	}

	ev := c.logger.Info()
	if out.Failure != nil {
		ev = c.logger.Warn().Err(out.Failure.Err)
	}
	ev.Str("operation", out.Operation).
		Str("sequence_id", out.SequenceID).
		Int("pages", out.Pages).
		Int("records", out.Records).
		Msg("Sequence finished")
	return out, nil
}

// Finish flushes the sink and produces the report, uploading it to S3 and
// pushing metrics to the Pushgateway when configured.
func (c *Coordinator) Finish(ctx context.Context) (metrics.Report, error) {
	if err := c.sink.Flush(ctx); err != nil {
		return metrics.Report{}, fmt.Errorf("failed to flush sink: %w", err)
	}

	report := c.metrics.GenerateReport()
	c.logger.Info().
		Int64("sequences", report.Sequences).
		Int64("calls", report.Calls).
		Int64("pages", report.Pages).
		Int64("failures", report.Failures).
		Dur("duration", report.Duration).
		Msg("Run complete")

	if c.cfg.ReportS3URI != "" && c.uploader != nil {
		if err := c.uploader.UploadReport(ctx, c.cfg.ReportS3URI, report); err != nil {
			return report, fmt.Errorf("failed to upload report: %w", err)
		}
		c.logger.Info().Str("uri", c.cfg.ReportS3URI).Msg("Report uploaded")
	}

	if c.cfg.PushgatewayURL != "" {
		if err := c.metrics.Push(ctx, c.cfg.PushgatewayURL, "smpager"); err != nil {
			return report, err
		}
	}
	return report, nil
}
