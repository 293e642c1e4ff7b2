// Package operations declares the SageMaker operations smpager exposes. Each
// operation is a typed parameter struct that knows its command-line flags,
// how to build the SDK request from the parameters the caller actually set,
// which response fields can be selected and how to run itself through the
// paginated invocation driver.
package operations

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"iter"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/gurre/smpager/aws"
	"github.com/gurre/smpager/driver"
	"github.com/urfave/cli/v2"
)

// Params is implemented by every operation's parameter struct.
type Params interface {
	// Flags returns the request flags of the operation.
	Flags() []cli.Flag
	// Bind copies the flags the caller set. Unset flags leave fields nil.
	Bind(c *cli.Context) error
	// Invoke resolves the selector and returns the lazily produced results.
	// Selector errors are returned before any call is made.
	Invoke(ctx context.Context, call Call) (iter.Seq[driver.Result], error)
}

// Call carries the per-invocation settings that are not request fields.
type Call struct {
	Client     aws.SageMakerClient
	Driver     *driver.Driver
	Selector   driver.Selector
	Cursor     string // starting cursor
	Manual     bool   // caller controls paging
	SequenceID string
}

// Spec describes one operation.
type Spec struct {
	Name      string // SageMaker operation name, e.g. ListModels
	Command   string // CLI command name, e.g. list-models
	Usage     string
	Paginated bool
	New       func() Params
}

// Action returns the IAM action name checked by the preflight.
func (s Spec) Action() string {
	return "sagemaker:" + s.Name
}

var registry = []Spec{
	{Name: "QueryLineage", Command: "query-lineage", Usage: "Explore the lineage graph around one or more entities", Paginated: true, New: func() Params { return &QueryLineageParams{} }},
	{Name: "ListTrainingJobs", Command: "list-training-jobs", Usage: "List training jobs", Paginated: true, New: func() Params { return &ListTrainingJobsParams{} }},
	{Name: "ListModels", Command: "list-models", Usage: "List models", Paginated: true, New: func() Params { return &ListModelsParams{} }},
	{Name: "ListPipelineExecutions", Command: "list-pipeline-executions", Usage: "List executions of a pipeline", Paginated: true, New: func() Params { return &ListPipelineExecutionsParams{} }},
	{Name: "ListEndpoints", Command: "list-endpoints", Usage: "List endpoints", Paginated: true, New: func() Params { return &ListEndpointsParams{} }},
	{Name: "ListClusterNodes", Command: "list-cluster-nodes", Usage: "List the nodes of a HyperPod cluster", Paginated: true, New: func() Params { return &ListClusterNodesParams{} }},
	{Name: "CreateModel", Command: "create-model", Usage: "Create a model", New: func() Params { return &CreateModelParams{} }},
	{Name: "DescribeModel", Command: "describe-model", Usage: "Describe a model", New: func() Params { return &DescribeModelParams{} }},
	{Name: "DeleteModel", Command: "delete-model", Usage: "Delete a model", New: func() Params { return &DeleteModelParams{} }},
	{Name: "UpdateWorkteam", Command: "update-workteam", Usage: "Update a private workteam", New: func() Params { return &UpdateWorkteamParams{} }},
	{Name: "StartPipelineExecution", Command: "start-pipeline-execution", Usage: "Start a pipeline execution", New: func() Params { return &StartPipelineExecutionParams{} }},
}

// All returns every operation sorted by command name.
func All() []Spec {
	out := make([]Spec, len(registry))
	copy(out, registry)
	sort.Slice(out, func(i, j int) bool { return out[i].Command < out[j].Command })
	return out
}

// Lookup finds an operation by operation name or command name, ignoring case.
func Lookup(name string) (Spec, bool) {
	for _, s := range registry {
		if strings.EqualFold(s.Name, name) || strings.EqualFold(s.Command, name) {
			return s, true
		}
	}
	return Spec{}, false
}

// Fingerprint identifies a request by its operation and the parameters the
// caller set. Map keys are encoded in sorted order, so equal parameters give
// equal fingerprints.
func Fingerprint(spec Spec, p Params) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("%s: failed to encode parameters: %w", spec.Name, err)
	}
	h := sha256.New()
	h.Write([]byte(spec.Name))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// invoke is the shared tail of every Params.Invoke.
func invoke[In, Out any](ctx context.Context, call Call, op driver.Operation[In, Out], in *In,
	def string, fields driver.Fields[Out], params driver.Params) (iter.Seq[driver.Result], error) {
	proj, err := driver.Resolve(call.Selector, def, fields, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op.Name, err)
	}
	if !op.Paginated() && (call.Cursor != "" || call.Manual) {
		return nil, fmt.Errorf("%s does not support paging", op.Name)
	}
	return driver.Paginate(ctx, call.Driver, driver.Invocation[In, Out]{
		Operation:  op,
		Input:      in,
		Cursor:     call.Cursor,
		Manual:     call.Manual,
		Projection: proj,
		SequenceID: call.SequenceID,
	}), nil
}

// deref returns the pointed-to value, or nil for a nil pointer.
func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
