package operations

import (
	"context"
	"iter"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/gurre/smpager/aws"
	"github.com/gurre/smpager/driver"
	"github.com/urfave/cli/v2"
)

// ListPipelineExecutionsParams mirrors ListPipelineExecutionsInput.
type ListPipelineExecutionsParams struct {
	PipelineName  *string    `json:"pipelineName,omitempty"`
	CreatedAfter  *time.Time `json:"createdAfter,omitempty"`
	CreatedBefore *time.Time `json:"createdBefore,omitempty"`
	SortBy        *string    `json:"sortBy,omitempty"`
	SortOrder     *string    `json:"sortOrder,omitempty"`
	MaxResults    *int32     `json:"maxResults,omitempty"`
}

// Flags implements Params.
func (p *ListPipelineExecutionsParams) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "pipeline-name", Usage: "Name or ARN of the pipeline", Required: true},
		timeFlag("created-after", "Only executions started after"),
		timeFlag("created-before", "Only executions started before"),
		&cli.StringFlag{Name: "sort-by", Usage: "CreationTime|PipelineExecutionArn"},
		sortOrderFlag("Ascending|Descending"),
		maxResultsFlag(),
	}
}

// Bind implements Params.
func (p *ListPipelineExecutionsParams) Bind(c *cli.Context) error {
	bindString(c, "pipeline-name", &p.PipelineName)
	bindString(c, "sort-by", &p.SortBy)
	bindString(c, "sort-order", &p.SortOrder)
	bindInt32(c, "max-results", &p.MaxResults)
	if err := bindTime(c, "created-after", &p.CreatedAfter); err != nil {
		return err
	}
	return bindTime(c, "created-before", &p.CreatedBefore)
}

// Build returns the ListPipelineExecutions request with only the set fields assigned.
func (p *ListPipelineExecutionsParams) Build() *sagemaker.ListPipelineExecutionsInput {
	in := &sagemaker.ListPipelineExecutionsInput{
		PipelineName:  p.PipelineName,
		CreatedAfter:  p.CreatedAfter,
		CreatedBefore: p.CreatedBefore,
		MaxResults:    p.MaxResults,
	}
	if p.SortBy != nil {
		in.SortBy = types.SortPipelineExecutionsBy(*p.SortBy)
	}
	if p.SortOrder != nil {
		in.SortOrder = types.SortOrder(*p.SortOrder)
	}
	return in
}

// Invoke implements Params.
func (p *ListPipelineExecutionsParams) Invoke(ctx context.Context, call Call) (iter.Seq[driver.Result], error) {
	return invoke(ctx, call, listPipelineExecutionsOp(call.Client), p.Build(), "PipelineExecutionSummaries",
		driver.Fields[sagemaker.ListPipelineExecutionsOutput]{
			"PipelineExecutionSummaries": func(o *sagemaker.ListPipelineExecutionsOutput) any { return o.PipelineExecutionSummaries },
			"NextToken":                  func(o *sagemaker.ListPipelineExecutionsOutput) any { return o.NextToken },
		},
		driver.Params{
			"PipelineName": func() any { return deref(p.PipelineName) },
			"SortBy":       func() any { return deref(p.SortBy) },
			"SortOrder":    func() any { return deref(p.SortOrder) },
			"MaxResults":   func() any { return deref(p.MaxResults) },
		})
}

func listPipelineExecutionsOp(c aws.SageMakerClient) driver.Operation[sagemaker.ListPipelineExecutionsInput, sagemaker.ListPipelineExecutionsOutput] {
	return driver.Operation[sagemaker.ListPipelineExecutionsInput, sagemaker.ListPipelineExecutionsOutput]{
		Name: "ListPipelineExecutions",
		Call: func(ctx context.Context, in *sagemaker.ListPipelineExecutionsInput) (*sagemaker.ListPipelineExecutionsOutput, error) {
			return c.ListPipelineExecutions(ctx, in)
		},
		SetCursor:  func(in *sagemaker.ListPipelineExecutionsInput, cursor *string) { in.NextToken = cursor },
		NextCursor: func(out *sagemaker.ListPipelineExecutionsOutput) *string { return out.NextToken },
	}
}

// StartPipelineExecutionParams mirrors StartPipelineExecutionInput.
// MaxParallelExecutionSteps makes up the ParallelismConfiguration block;
// SourcePipelineExecutionArn and SelectedSteps make up the
// SelectiveExecutionConfig block.
type StartPipelineExecutionParams struct {
	PipelineName                 *string           `json:"pipelineName,omitempty"`
	ClientRequestToken           *string           `json:"clientRequestToken,omitempty"`
	PipelineExecutionDisplayName *string           `json:"pipelineExecutionDisplayName,omitempty"`
	PipelineExecutionDescription *string           `json:"pipelineExecutionDescription,omitempty"`
	PipelineParameters           map[string]string `json:"pipelineParameters,omitempty"`
	MaxParallelExecutionSteps    *int32            `json:"maxParallelExecutionSteps,omitempty"`
	SourcePipelineExecutionArn   *string           `json:"sourcePipelineExecutionArn,omitempty"`
	SelectedSteps                []string          `json:"selectedSteps,omitempty"`
}

// Flags implements Params.
func (p *StartPipelineExecutionParams) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "pipeline-name", Usage: "Name or ARN of the pipeline", Required: true},
		&cli.StringFlag{Name: "client-request-token", Usage: "Idempotency token (generated by the SDK when unset)"},
		&cli.StringFlag{Name: "pipeline-execution-display-name", Usage: "Display name of the execution"},
		&cli.StringFlag{Name: "pipeline-execution-description", Usage: "Description of the execution"},
		&cli.StringSliceFlag{Name: "pipeline-parameter", Usage: "Pipeline parameter name=value (repeatable)"},
		&cli.IntFlag{Name: "max-parallel-execution-steps", Usage: "Maximum number of steps run in parallel"},
		&cli.StringFlag{Name: "source-pipeline-execution-arn", Usage: "Execution whose outputs selective execution reuses"},
		&cli.StringSliceFlag{Name: "selected-step", Usage: "Step to run in a selective execution (repeatable)"},
	}
}

// Bind implements Params.
func (p *StartPipelineExecutionParams) Bind(c *cli.Context) error {
	bindString(c, "pipeline-name", &p.PipelineName)
	bindString(c, "client-request-token", &p.ClientRequestToken)
	bindString(c, "pipeline-execution-display-name", &p.PipelineExecutionDisplayName)
	bindString(c, "pipeline-execution-description", &p.PipelineExecutionDescription)
	bindInt32(c, "max-parallel-execution-steps", &p.MaxParallelExecutionSteps)
	bindString(c, "source-pipeline-execution-arn", &p.SourcePipelineExecutionArn)
	bindStrings(c, "selected-step", &p.SelectedSteps)
	return bindMap(c, "pipeline-parameter", &p.PipelineParameters)
}

// Build returns the request. ParallelismConfiguration and
// SelectiveExecutionConfig stay nil unless one of their fields was supplied.
func (p *StartPipelineExecutionParams) Build() *sagemaker.StartPipelineExecutionInput {
	in := &sagemaker.StartPipelineExecutionInput{
		PipelineName:                 p.PipelineName,
		ClientRequestToken:           p.ClientRequestToken,
		PipelineExecutionDisplayName: p.PipelineExecutionDisplayName,
		PipelineExecutionDescription: p.PipelineExecutionDescription,
	}

	if p.PipelineParameters != nil {
		for _, k := range sortedKeys(p.PipelineParameters) {
			name, value := k, p.PipelineParameters[k]
			in.PipelineParameters = append(in.PipelineParameters, types.Parameter{Name: &name, Value: &value})
		}
	}

	if p.MaxParallelExecutionSteps != nil {
		in.ParallelismConfiguration = &types.ParallelismConfiguration{
			MaxParallelExecutionSteps: p.MaxParallelExecutionSteps,
		}
	}

	selective := &types.SelectiveExecutionConfig{}
	selectiveSet := false
	if p.SourcePipelineExecutionArn != nil {
		selective.SourcePipelineExecutionArn = p.SourcePipelineExecutionArn
		selectiveSet = true
	}
	if p.SelectedSteps != nil {
		for _, s := range p.SelectedSteps {
			step := s
			selective.SelectedSteps = append(selective.SelectedSteps, types.SelectedStep{StepName: &step})
		}
		selectiveSet = true
	}
	if selectiveSet {
		in.SelectiveExecutionConfig = selective
	}
	return in
}

// Invoke implements Params.
func (p *StartPipelineExecutionParams) Invoke(ctx context.Context, call Call) (iter.Seq[driver.Result], error) {
	return invoke(ctx, call, startPipelineExecutionOp(call.Client), p.Build(), "PipelineExecutionArn",
		driver.Fields[sagemaker.StartPipelineExecutionOutput]{
			"PipelineExecutionArn": func(o *sagemaker.StartPipelineExecutionOutput) any { return o.PipelineExecutionArn },
		},
		driver.Params{
			"PipelineName":                 func() any { return deref(p.PipelineName) },
			"ClientRequestToken":           func() any { return deref(p.ClientRequestToken) },
			"PipelineExecutionDisplayName": func() any { return deref(p.PipelineExecutionDisplayName) },
			"PipelineParameters":           func() any { return p.PipelineParameters },
		})
}

func startPipelineExecutionOp(c aws.SageMakerClient) driver.Operation[sagemaker.StartPipelineExecutionInput, sagemaker.StartPipelineExecutionOutput] {
	return driver.Operation[sagemaker.StartPipelineExecutionInput, sagemaker.StartPipelineExecutionOutput]{
		Name: "StartPipelineExecution",
		Call: func(ctx context.Context, in *sagemaker.StartPipelineExecutionInput) (*sagemaker.StartPipelineExecutionOutput, error) {
			return c.StartPipelineExecution(ctx, in)
		},
	}
}
