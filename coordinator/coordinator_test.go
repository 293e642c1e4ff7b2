package coordinator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/gurre/smpager/aws"
	"github.com/gurre/smpager/checkpoint"
	"github.com/gurre/smpager/config"
	"github.com/gurre/smpager/driver"
	"github.com/gurre/smpager/metrics"
	"github.com/gurre/smpager/operations"
	"github.com/gurre/smpager/sink"
)

// fakeSageMaker serves ListModels pages keyed by the request cursor. The
// embedded interface is nil, so any call the tests do not script panics.
type fakeSageMaker struct {
	aws.SageMakerClient

	mu      sync.Mutex
	pages   map[string]*sagemaker.ListModelsOutput // keyed by request NextToken
	fail    map[string]error
	cursors []string
	deleted []string
}

func newFakeSageMaker() *fakeSageMaker {
	return &fakeSageMaker{
		pages: map[string]*sagemaker.ListModelsOutput{
			"":     {Models: []types.ModelSummary{{ModelName: str("a")}}, NextToken: str("tok1")},
			"tok1": {Models: []types.ModelSummary{{ModelName: str("b")}}, NextToken: str("tok2")},
			"tok2": {Models: []types.ModelSummary{{ModelName: str("c")}}},
		},
		fail: map[string]error{},
	}
}

func (f *fakeSageMaker) ListModels(ctx context.Context, in *sagemaker.ListModelsInput, _ ...func(*sagemaker.Options)) (*sagemaker.ListModelsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cursor := ""
	if in.NextToken != nil {
		cursor = *in.NextToken
	}
	f.cursors = append(f.cursors, cursor)
	if err := f.fail[cursor]; err != nil {
		return nil, err
	}
	out, ok := f.pages[cursor]
	if !ok {
		return nil, errors.New("unexpected cursor " + cursor)
	}
	return out, nil
}

func (f *fakeSageMaker) DeleteModel(ctx context.Context, in *sagemaker.DeleteModelInput, _ ...func(*sagemaker.Options)) (*sagemaker.DeleteModelOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, *in.ModelName)
	return &sagemaker.DeleteModelOutput{}, nil
}

func (f *fakeSageMaker) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cursors...)
}

type memorySink struct {
	mu      sync.Mutex
	records []sink.Record
	flushed int
	err     error
}

func (s *memorySink) Write(ctx context.Context, rec sink.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *memorySink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushed++
	return nil
}

func (s *memorySink) failed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.records {
		if r.Failed() {
			n++
		}
	}
	return n
}

type fakePreflight struct {
	err     error
	actions []string
}

func (p *fakePreflight) Check(ctx context.Context, actions ...string) error {
	p.actions = append(p.actions, actions...)
	return p.err
}

type fakeUploader struct {
	uri    string
	report metrics.Report
}

func (u *fakeUploader) UploadReport(ctx context.Context, uri string, report metrics.Report) error {
	u.uri, u.report = uri, report
	return nil
}

type mockStreamer struct {
	bucket, key string
	data        [][]byte
}

func (m *mockStreamer) Stream(ctx context.Context, bucket, key string, offset int64, fn func([]byte, int64) error) error {
	m.bucket, m.key = bucket, key
	for i, line := range m.data {
		if err := fn(line, int64(i)); err != nil {
			return err
		}
	}
	return nil
}

func str(s string) *string { return &s }

func testConfig() *config.Config {
	return &config.Config{Region: "eu-west-1", MaxWorkers: 2, BatchSize: 25}
}

func listModelsJob(t *testing.T, sel string) Job {
	t.Helper()
	spec, ok := operations.Lookup("ListModels")
	if !ok {
		t.Fatal("ListModels not registered")
	}
	s, err := driver.ParseSelector(sel)
	if err != nil {
		t.Fatalf("ParseSelector: %v", err)
	}
	return Job{Spec: spec, Params: spec.New(), Selector: s}
}

func TestRunOnePaginates(t *testing.T) {
	client := newFakeSageMaker()
	out := &memorySink{}
	c := NewCoordinator(testConfig(), Deps{Client: client, Sink: out})

	res, err := c.RunOne(context.Background(), listModelsJob(t, ""))
	if err != nil {
		t.Fatalf("RunOne: %v", err)
	}
	if res.Pages != 3 || res.Records != 3 || res.Failure != nil {
		t.Errorf("unexpected outcome %+v", res)
	}
	if got := client.calls(); strings.Join(got, ",") != ",tok1,tok2" {
		t.Errorf("unexpected cursors %q", got)
	}
	if len(out.records) != 3 || out.records[0].SequenceID != res.SequenceID {
		t.Errorf("unexpected records %+v", out.records)
	}
	r := c.Metrics().GenerateReport()
	if r.Sequences != 1 || r.Calls != 3 || r.Pages != 3 || r.Written != 3 || r.Failures != 0 {
		t.Errorf("unexpected report %+v", r)
	}
}

func TestRunOneFailureEnvelope(t *testing.T) {
	client := newFakeSageMaker()
	client.fail["tok1"] = errors.New("ThrottlingException")
	out := &memorySink{}
	c := NewCoordinator(testConfig(), Deps{Client: client, Sink: out})

	res, err := c.RunOne(context.Background(), listModelsJob(t, "Models"))
	if err != nil {
		t.Fatalf("RunOne: %v", err)
	}
	if res.Failure == nil || res.Failure.Page != 2 || res.Failure.Cursor != "tok1" {
		t.Fatalf("expected failure on page 2, got %+v", res.Failure)
	}
	if res.Pages != 1 || res.Records != 2 {
		t.Errorf("unexpected outcome %+v", res)
	}
	if out.failed() != 1 || out.records[1].Error == "" {
		t.Errorf("expected trailing failure record, got %+v", out.records)
	}
	if got := c.Metrics().Failures(); got != 1 {
		t.Errorf("expected 1 failure, got %d", got)
	}
}

func TestRunOneManualCursor(t *testing.T) {
	client := newFakeSageMaker()
	c := NewCoordinator(testConfig(), Deps{Client: client, Sink: &memorySink{}})

	job := listModelsJob(t, "*")
	job.Cursor = "tok1"
	job.Manual = true
	res, err := c.RunOne(context.Background(), job)
	if err != nil {
		t.Fatalf("RunOne: %v", err)
	}
	if got := client.calls(); len(got) != 1 || got[0] != "tok1" {
		t.Errorf("expected one call with tok1, got %q", got)
	}
	if res.Records != 1 {
		t.Errorf("expected 1 record, got %d", res.Records)
	}
}

func fingerprint(t *testing.T, job Job) string {
	t.Helper()
	f, err := operations.Fingerprint(job.Spec, job.Params)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	return f
}

func TestRunOneResumesFromCheckpoint(t *testing.T) {
	client := newFakeSageMaker()
	store := checkpoint.NewMemoryStore()
	job := listModelsJob(t, "")
	if err := store.Save(context.Background(), checkpoint.State{Operation: "ListModels", Request: fingerprint(t, job), Cursor: "tok1", Pages: 1}); err != nil {
		t.Fatal(err)
	}
	c := NewCoordinator(testConfig(), Deps{Client: client, Sink: &memorySink{}, Store: store})

	if _, err := c.RunOne(context.Background(), job); err != nil {
		t.Fatalf("RunOne: %v", err)
	}
	if got := client.calls(); strings.Join(got, ",") != "tok1,tok2" {
		t.Errorf("expected resume at tok1, got %q", got)
	}
	st, _ := store.Load(context.Background())
	if !st.Done || st.Pages != 3 || st.Cursor != "" {
		t.Errorf("unexpected final checkpoint %+v", st)
	}
}

func TestRunOneIgnoresFinishedCheckpoint(t *testing.T) {
	client := newFakeSageMaker()
	store := checkpoint.NewMemoryStore()
	_ = store.Save(context.Background(), checkpoint.State{Operation: "ListModels", Pages: 3, Done: true})
	c := NewCoordinator(testConfig(), Deps{Client: client, Sink: &memorySink{}, Store: store})

	if _, err := c.RunOne(context.Background(), listModelsJob(t, "")); err != nil {
		t.Fatalf("RunOne: %v", err)
	}
	if got := client.calls(); len(got) != 3 || got[0] != "" {
		t.Errorf("expected a fresh listing, got %q", got)
	}
}

func TestRunOneSavesCursorOnFailure(t *testing.T) {
	client := newFakeSageMaker()
	client.fail["tok2"] = errors.New("InternalFailure")
	store := checkpoint.NewMemoryStore()
	c := NewCoordinator(testConfig(), Deps{Client: client, Sink: &memorySink{}, Store: store})

	job := listModelsJob(t, "")
	if _, err := c.RunOne(context.Background(), job); err != nil {
		t.Fatalf("RunOne: %v", err)
	}
	st, _ := store.Load(context.Background())
	if !st.Resumable("ListModels", fingerprint(t, job)) || st.Cursor != "tok2" || st.Pages != 2 {
		t.Errorf("expected resumable checkpoint at tok2, got %+v", st)
	}
}

func TestRunOneDoesNotResumeOtherParameters(t *testing.T) {
	client := newFakeSageMaker()
	client.fail["tok2"] = errors.New("InternalFailure")
	store := checkpoint.NewMemoryStore()
	ctx := context.Background()

	alpha := listModelsJob(t, "")
	alpha.Params = &operations.ListModelsParams{NameContains: str("alpha")}
	first := NewCoordinator(testConfig(), Deps{Client: client, Sink: &memorySink{}, Store: store})
	if _, err := first.RunOne(ctx, alpha); err != nil {
		t.Fatalf("RunOne(alpha): %v", err)
	}
	if st, _ := store.Load(ctx); st.Cursor != "tok2" {
		t.Fatalf("expected alpha checkpoint at tok2, got %+v", st)
	}

	delete(client.fail, "tok2")
	beta := listModelsJob(t, "")
	beta.Params = &operations.ListModelsParams{NameContains: str("beta")}
	second := NewCoordinator(testConfig(), Deps{Client: client, Sink: &memorySink{}, Store: store})
	res, err := second.RunOne(ctx, beta)
	if err != nil {
		t.Fatalf("RunOne(beta): %v", err)
	}

	calls := client.calls()
	if got := strings.Join(calls[3:], ","); got != ",tok1,tok2" {
		t.Errorf("expected beta to start from the first page, got %q", calls[3:])
	}
	if res.Pages != 3 || res.Failure != nil {
		t.Errorf("unexpected outcome %+v", res)
	}
	st, _ := store.Load(ctx)
	if !st.Done || st.Request != fingerprint(t, beta) {
		t.Errorf("expected finished checkpoint for beta, got %+v", st)
	}
}

// countingStore counts checkpoint loads and can fail every save.
type countingStore struct {
	checkpoint.Store
	loads   int
	saveErr error
}

func (s *countingStore) Load(ctx context.Context) (checkpoint.State, error) {
	s.loads++
	return s.Store.Load(ctx)
}

func (s *countingStore) Save(ctx context.Context, st checkpoint.State) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.Store.Save(ctx, st)
}

func TestRunOneReportsCheckpointSaveError(t *testing.T) {
	store := &countingStore{Store: checkpoint.NewMemoryStore(), saveErr: errors.New("bucket gone")}
	out := &memorySink{}
	c := NewCoordinator(testConfig(), Deps{Client: newFakeSageMaker(), Sink: out, Store: store})

	res, err := c.RunOne(context.Background(), listModelsJob(t, ""))
	if err == nil || !strings.Contains(err.Error(), "bucket gone") {
		t.Fatalf("expected checkpoint save error, got %v", err)
	}
	if res.Pages != 3 || len(out.records) != 3 {
		t.Errorf("expected results to be delivered, got %+v", res)
	}
}

func TestRunOnePreflightDenied(t *testing.T) {
	client := newFakeSageMaker()
	pf := &fakePreflight{err: errors.New("denied")}
	out := &memorySink{}
	c := NewCoordinator(testConfig(), Deps{Client: client, Sink: out, Preflight: pf})

	if _, err := c.RunOne(context.Background(), listModelsJob(t, "")); err == nil {
		t.Fatal("expected preflight error")
	}
	if len(client.calls()) != 0 || len(out.records) != 0 {
		t.Errorf("expected no calls and no records")
	}
	if len(pf.actions) != 1 || pf.actions[0] != "sagemaker:ListModels" {
		t.Errorf("unexpected checked actions %v", pf.actions)
	}
}

func TestRunOneUnknownSelector(t *testing.T) {
	client := newFakeSageMaker()
	pf := &fakePreflight{}
	store := &countingStore{Store: checkpoint.NewMemoryStore()}
	c := NewCoordinator(testConfig(), Deps{Client: client, Sink: &memorySink{}, Preflight: pf, Store: store})

	_, err := c.RunOne(context.Background(), listModelsJob(t, "NoSuchField"))
	if !errors.Is(err, driver.ErrUnknownSelection) {
		t.Fatalf("expected ErrUnknownSelection, got %v", err)
	}
	if len(client.calls()) != 0 || len(pf.actions) != 0 || store.loads != 0 {
		t.Errorf("expected no remote calls, got %d calls, %d preflight checks and %d checkpoint loads",
			len(client.calls()), len(pf.actions), store.loads)
	}
}

func TestRunOneCancelled(t *testing.T) {
	client := newFakeSageMaker()
	out := &memorySink{}
	c := NewCoordinator(testConfig(), Deps{Client: client, Sink: out})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := c.RunOne(ctx, listModelsJob(t, ""))
	if err != nil {
		t.Fatalf("RunOne: %v", err)
	}
	if res.Failure == nil || !errors.Is(res.Failure, context.Canceled) {
		t.Fatalf("expected cancellation envelope, got %+v", res.Failure)
	}
	if len(client.calls()) != 0 {
		t.Error("expected no calls after cancellation")
	}
	if c.Metrics().Failures() != 1 {
		t.Errorf("expected 1 failure, got %d", c.Metrics().Failures())
	}
}

func TestRunOneSinkError(t *testing.T) {
	c := NewCoordinator(testConfig(), Deps{Client: newFakeSageMaker(), Sink: &memorySink{err: errors.New("disk full")}})
	if _, err := c.RunOne(context.Background(), listModelsJob(t, "")); err == nil {
		t.Fatal("expected sink error")
	}
}

func TestParseRequest(t *testing.T) {
	job, err := ParseRequest([]byte(`{"operation":"list-models","params":{"nameContains":"xgb","maxResults":10},"select":"^NameContains","nextToken":"tok1","noAutoIteration":true}`))
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if job.Spec.Name != "ListModels" || job.Cursor != "tok1" || !job.Manual {
		t.Errorf("unexpected job %+v", job)
	}
	if job.Selector.Mode != driver.EchoParameter || job.Selector.Name != "NameContains" {
		t.Errorf("unexpected selector %+v", job.Selector)
	}
	p := job.Params.(*operations.ListModelsParams)
	if p.NameContains == nil || *p.NameContains != "xgb" || p.MaxResults == nil || *p.MaxResults != 10 || p.SortBy != nil {
		t.Errorf("unexpected params %+v", p)
	}

	bound, err := ParseRequest([]byte(`{"operation":"ListModels","nextToken":"tok2"}`))
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if !bound.Manual || bound.Cursor != "tok2" {
		t.Errorf("expected a bound cursor to make the job manual, got %+v", bound)
	}

	tests := []struct {
		name string
		line string
	}{
		{"malformed", `{"operation":`},
		{"unknown operation", `{"operation":"ListEverything"}`},
		{"unknown param", `{"operation":"ListModels","params":{"nameContain":"x"}}`},
		{"bad selector", `{"operation":"ListModels","select":"^"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRequest([]byte(tt.line)); !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

const batchInput = `{"operation":"ListModels"}
not json

{"operation":"ListEverything"}
{"operation":"DeleteModel","params":{"modelName":"old"}}
{"operation":"DeleteModel","nextToken":"tok"}
`

func TestRunBatchFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.jsonl")
	if err := os.WriteFile(path, []byte(batchInput), 0o644); err != nil {
		t.Fatal(err)
	}
	client := newFakeSageMaker()
	out := &memorySink{}
	c := NewCoordinator(testConfig(), Deps{Client: client, Sink: out})

	summary, err := c.RunBatch(context.Background(), "file://"+path)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	want := BatchSummary{Lines: 5, Invalid: 3, Sequences: 2}
	if summary != want {
		t.Errorf("summary = %+v, want %+v", summary, want)
	}
	// 3 ListModels pages, 1 DeleteModel response, 3 rejected lines.
	if len(out.records) != 7 || out.failed() != 3 {
		t.Errorf("unexpected records %+v", out.records)
	}
	if len(client.deleted) != 1 || client.deleted[0] != "old" {
		t.Errorf("unexpected deletes %v", client.deleted)
	}
	if got := c.Metrics().Failures(); got != 3 {
		t.Errorf("expected 3 failures, got %d", got)
	}
}

func TestRunBatchRejectsAreScopedToRun(t *testing.T) {
	pf := &fakePreflight{}
	out := &memorySink{}
	c := NewCoordinator(testConfig(), Deps{Client: newFakeSageMaker(), Sink: out, Preflight: pf, Streamer: &mockStreamer{data: [][]byte{
		[]byte(`{"operation":"ListModels","select":"Widgets"}`),
	}}})

	for i := 0; i < 2; i++ {
		summary, err := c.RunBatch(context.Background(), "s3://requests/batch.jsonl")
		if err != nil {
			t.Fatalf("RunBatch: %v", err)
		}
		if summary.Invalid != 1 {
			t.Errorf("expected the unknown selector to be rejected, got %+v", summary)
		}
	}
	if len(pf.actions) != 0 {
		t.Errorf("expected no preflight for a rejected line, got %v", pf.actions)
	}
	if len(out.records) != 2 {
		t.Fatalf("expected 2 reject records, got %d", len(out.records))
	}
	a, b := out.records[0].SequenceID, out.records[1].SequenceID
	if a == b || !strings.HasSuffix(a, "-line-1") || !strings.HasSuffix(b, "-line-1") {
		t.Errorf("expected distinct run-scoped ids, got %q and %q", a, b)
	}
}

func TestRunBatchFromS3(t *testing.T) {
	streamer := &mockStreamer{data: [][]byte{
		[]byte(`{"operation":"ListModels","select":"Models"}`),
		[]byte(`{"operation":"ListModels","nextToken":"tok2"}` + "\n"),
	}}
	client := newFakeSageMaker()
	out := &memorySink{}
	c := NewCoordinator(testConfig(), Deps{Client: client, Sink: out, Streamer: streamer})

	summary, err := c.RunBatch(context.Background(), "s3://requests/2024/batch.jsonl")
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if streamer.bucket != "requests" || streamer.key != "2024/batch.jsonl" {
		t.Errorf("unexpected object %s/%s", streamer.bucket, streamer.key)
	}
	if summary.Sequences != 2 || summary.Invalid != 0 {
		t.Errorf("unexpected summary %+v", summary)
	}
	// 3 pages from the start plus the single page at tok2.
	if len(client.calls()) != 4 || len(out.records) != 4 {
		t.Errorf("unexpected calls %q and records %d", client.calls(), len(out.records))
	}
}

func TestRunBatchCountsFailedSequences(t *testing.T) {
	client := newFakeSageMaker()
	client.fail[""] = errors.New("AccessDeniedException")
	c := NewCoordinator(testConfig(), Deps{Client: client, Sink: &memorySink{}, Streamer: &mockStreamer{data: [][]byte{
		[]byte(`{"operation":"ListModels"}`),
		[]byte(`{"operation":"ListModels"}`),
	}}})

	summary, err := c.RunBatch(context.Background(), "s3://requests/batch.jsonl")
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if summary.Sequences != 2 || summary.Failed != 2 {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestRunBatchSinkErrorStops(t *testing.T) {
	c := NewCoordinator(testConfig(), Deps{
		Client:   newFakeSageMaker(),
		Sink:     &memorySink{err: errors.New("table gone")},
		Streamer: &mockStreamer{data: [][]byte{[]byte(`{"operation":"ListModels"}`)}},
	})
	if _, err := c.RunBatch(context.Background(), "s3://requests/batch.jsonl"); err == nil || !strings.Contains(err.Error(), "table gone") {
		t.Fatalf("expected sink error, got %v", err)
	}
}

func TestRunBatchRejectsInput(t *testing.T) {
	c := NewCoordinator(testConfig(), Deps{Client: newFakeSageMaker(), Sink: &memorySink{}})
	for _, uri := range []string{"https://example.com/x.jsonl", "s3://bucket/x.jsonl", "file://"} {
		if _, err := c.RunBatch(context.Background(), uri); err == nil {
			t.Errorf("expected error for %q", uri)
		}
	}
}

func TestFinishUploadsReport(t *testing.T) {
	cfg := testConfig()
	cfg.ReportS3URI = "s3://reports/run.json"
	out := &memorySink{}
	up := &fakeUploader{}
	c := NewCoordinator(cfg, Deps{Client: newFakeSageMaker(), Sink: out, Uploader: up})

	if _, err := c.RunOne(context.Background(), listModelsJob(t, "")); err != nil {
		t.Fatalf("RunOne: %v", err)
	}
	report, err := c.Finish(context.Background())
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if out.flushed != 1 {
		t.Errorf("expected one flush, got %d", out.flushed)
	}
	if up.uri != cfg.ReportS3URI || up.report.Pages != 3 || report.Pages != 3 {
		t.Errorf("unexpected upload %s %+v", up.uri, up.report)
	}
}
