// Package metrics counts invocation sequences, calls, pages and failures and
// produces the end-of-run report.
//
// Prometheus metrics (registered on Metrics.Registry, pushed by Push):
//   - smpager_calls_total{operation} (Counter): remote calls made
//   - smpager_pages_total{operation} (Counter): pages received
//   - smpager_failures_total{operation} (Counter): failure envelopes emitted
//   - smpager_sequences_total (Counter): invocation sequences started
//   - smpager_call_duration_seconds{operation} (Histogram): remote call latency
package metrics

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gurre/smpager/driver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics is safe for concurrent use and implements driver.Observer.
type Metrics struct {
	mu sync.Mutex

	sequences int64
	calls     int64
	pages     int64
	failures  int64
	written   int64 // records delivered to the sink

	callLatency time.Duration
	startTime   time.Time

	registry      *prometheus.Registry
	callsTotal    *prometheus.CounterVec
	pagesTotal    *prometheus.CounterVec
	failuresTotal *prometheus.CounterVec
	sequenceTotal prometheus.Counter
	callDuration  *prometheus.HistogramVec
}

// NewMetrics creates a Metrics with its own Prometheus registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		startTime: time.Now(),
		registry:  reg,
		callsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "smpager_calls_total",
			Help: "Remote calls made by operation",
		}, []string{"operation"}),
		pagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "smpager_pages_total",
			Help: "Pages received by operation",
		}, []string{"operation"}),
		failuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "smpager_failures_total",
			Help: "Failure envelopes emitted by operation",
		}, []string{"operation"}),
		sequenceTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "smpager_sequences_total",
			Help: "Invocation sequences started",
		}),
		callDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "smpager_call_duration_seconds",
			Help:    "Remote call duration in seconds by operation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"operation"}),
	}
}

// Registry returns the registry holding the Prometheus metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe implements driver.Observer.
func (m *Metrics) Observe(ctx context.Context, ev driver.PageEvent) {
	atomic.AddInt64(&m.calls, 1)
	m.callsTotal.WithLabelValues(ev.Operation).Inc()
	m.callDuration.WithLabelValues(ev.Operation).Observe(ev.Duration.Seconds())

	m.mu.Lock()
	m.callLatency += ev.Duration
	m.mu.Unlock()

	// Failed calls are counted by RecordFailure together with failures that
	// never reached the service.
	if ev.Err != nil {
		return
	}
	atomic.AddInt64(&m.pages, 1)
	m.pagesTotal.WithLabelValues(ev.Operation).Inc()
}

// RecordSequence counts a started invocation sequence.
func (m *Metrics) RecordSequence() {
	atomic.AddInt64(&m.sequences, 1)
	m.sequenceTotal.Inc()
}

// RecordFailure counts a failure envelope or an invalid batch line.
func (m *Metrics) RecordFailure(operation string) {
	atomic.AddInt64(&m.failures, 1)
	m.failuresTotal.WithLabelValues(operation).Inc()
}

// RecordWritten counts a record delivered to the sink.
func (m *Metrics) RecordWritten() {
	atomic.AddInt64(&m.written, 1)
}

// Failures returns the number of failures so far.
func (m *Metrics) Failures() int64 {
	return atomic.LoadInt64(&m.failures)
}

// Report is the end-of-run summary.
type Report struct {
	StartTime   time.Time     `json:"startTime"`
	EndTime     time.Time     `json:"endTime"`
	Sequences   int64         `json:"sequences"`
	Calls       int64         `json:"calls"`
	Pages       int64         `json:"pages"`
	Failures    int64         `json:"failures"`
	Written     int64         `json:"written"`
	CallLatency time.Duration `json:"callLatency"` // summed over all calls
	Duration    time.Duration `json:"duration"`
	Throughput  float64       `json:"throughput"` // pages per second
}

// GenerateReport snapshots the counters.
func (m *Metrics) GenerateReport() Report {
	endTime := time.Now()
	duration := endTime.Sub(m.startTime)
	pages := atomic.LoadInt64(&m.pages)

	var throughput float64
	if duration > 0 {
		throughput = float64(pages) / duration.Seconds()
	}

	m.mu.Lock()
	latency := m.callLatency
	m.mu.Unlock()

	return Report{
		StartTime:   m.startTime,
		EndTime:     endTime,
		Sequences:   atomic.LoadInt64(&m.sequences),
		Calls:       atomic.LoadInt64(&m.calls),
		Pages:       pages,
		Failures:    atomic.LoadInt64(&m.failures),
		Written:     atomic.LoadInt64(&m.written),
		CallLatency: latency,
		Duration:    duration,
		Throughput:  throughput,
	}
}

// MarshalJSON renders durations as strings.
func (r Report) MarshalJSON() ([]byte, error) {
	type Alias Report
	return json.Marshal(&struct {
		Alias
		CallLatency string `json:"callLatency"`
		Duration    string `json:"duration"`
	}{
		Alias:       Alias(r),
		CallLatency: r.CallLatency.String(),
		Duration:    r.Duration.String(),
	})
}

// String returns a human-readable summary.
func (r Report) String() string {
	return fmt.Sprintf(
		"Completed %d sequences in %s\n"+
			"Calls: %d (latency %s)\n"+
			"Pages: %d\n"+
			"Failures: %d\n"+
			"Records written: %d\n"+
			"Throughput: %.2f pages/sec",
		r.Sequences,
		r.Duration,
		r.Calls,
		r.CallLatency,
		r.Pages,
		r.Failures,
		r.Written,
		r.Throughput,
	)
}

// Push sends the Prometheus metrics to a Pushgateway under job.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	if err := push.New(gatewayURL, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
