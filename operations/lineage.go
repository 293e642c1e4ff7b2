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

// QueryLineageParams mirrors QueryLineageInput. The Filter* fields make up the
// optional QueryFilters block.
type QueryLineageParams struct {
	StartArns            []string          `json:"startArns,omitempty"`
	Direction            *string           `json:"direction,omitempty"`
	MaxDepth             *int32            `json:"maxDepth,omitempty"`
	MaxResults           *int32            `json:"maxResults,omitempty"`
	FilterTypes          []string          `json:"filterTypes,omitempty"`
	FilterLineageTypes   []string          `json:"filterLineageTypes,omitempty"`
	FilterCreatedAfter   *time.Time        `json:"filterCreatedAfter,omitempty"`
	FilterCreatedBefore  *time.Time        `json:"filterCreatedBefore,omitempty"`
	FilterModifiedAfter  *time.Time        `json:"filterModifiedAfter,omitempty"`
	FilterModifiedBefore *time.Time        `json:"filterModifiedBefore,omitempty"`
	FilterProperties     map[string]string `json:"filterProperties,omitempty"`
}

// Flags implements Params.
func (p *QueryLineageParams) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{Name: "start-arn", Usage: "ARN of an entity to start the query from (repeatable)"},
		&cli.StringFlag{Name: "direction", Usage: "Both|Ascendants|Descendants"},
		&cli.IntFlag{Name: "max-depth", Usage: "Maximum number of vertices between start and result"},
		maxResultsFlag(),
		&cli.StringSliceFlag{Name: "filter-type", Usage: "Entity type filter, e.g. DataSet or ModelDeployment (repeatable)"},
		&cli.StringSliceFlag{Name: "filter-lineage-type", Usage: "TrialComponent|Artifact|Context|Action (repeatable)"},
		timeFlag("filter-created-after", "Only entities created after"),
		timeFlag("filter-created-before", "Only entities created before"),
		timeFlag("filter-modified-after", "Only entities modified after"),
		timeFlag("filter-modified-before", "Only entities modified before"),
		&cli.StringSliceFlag{Name: "filter-property", Usage: "Property filter key=value (repeatable)"},
	}
}

// Bind implements Params.
func (p *QueryLineageParams) Bind(c *cli.Context) error {
	bindStrings(c, "start-arn", &p.StartArns)
	bindString(c, "direction", &p.Direction)
	bindInt32(c, "max-depth", &p.MaxDepth)
	bindInt32(c, "max-results", &p.MaxResults)
	bindStrings(c, "filter-type", &p.FilterTypes)
	bindStrings(c, "filter-lineage-type", &p.FilterLineageTypes)
	for name, dst := range map[string]**time.Time{
		"filter-created-after":   &p.FilterCreatedAfter,
		"filter-created-before":  &p.FilterCreatedBefore,
		"filter-modified-after":  &p.FilterModifiedAfter,
		"filter-modified-before": &p.FilterModifiedBefore,
	} {
		if err := bindTime(c, name, dst); err != nil {
			return err
		}
	}
	return bindMap(c, "filter-property", &p.FilterProperties)
}

// Build returns the request. Filters stays nil unless a filter was supplied.
func (p *QueryLineageParams) Build() *sagemaker.QueryLineageInput {
	in := &sagemaker.QueryLineageInput{
		StartArns:  p.StartArns,
		MaxDepth:   p.MaxDepth,
		MaxResults: p.MaxResults,
	}
	if p.Direction != nil {
		in.Direction = types.Direction(*p.Direction)
	}

	filters := &types.QueryFilters{}
	filtersSet := false
	if p.FilterTypes != nil {
		filters.Types = p.FilterTypes
		filtersSet = true
	}
	if p.FilterLineageTypes != nil {
		for _, t := range p.FilterLineageTypes {
			filters.LineageTypes = append(filters.LineageTypes, types.LineageType(t))
		}
		filtersSet = true
	}
	if p.FilterCreatedAfter != nil {
		filters.CreatedAfter = p.FilterCreatedAfter
		filtersSet = true
	}
	if p.FilterCreatedBefore != nil {
		filters.CreatedBefore = p.FilterCreatedBefore
		filtersSet = true
	}
	if p.FilterModifiedAfter != nil {
		filters.ModifiedAfter = p.FilterModifiedAfter
		filtersSet = true
	}
	if p.FilterModifiedBefore != nil {
		filters.ModifiedBefore = p.FilterModifiedBefore
		filtersSet = true
	}
	if p.FilterProperties != nil {
		filters.Properties = p.FilterProperties
		filtersSet = true
	}
	if filtersSet {
		in.Filters = filters
	}
	return in
}

// Invoke implements Params.
func (p *QueryLineageParams) Invoke(ctx context.Context, call Call) (iter.Seq[driver.Result], error) {
	return invoke(ctx, call, queryLineageOp(call.Client), p.Build(), "*",
		driver.Fields[sagemaker.QueryLineageOutput]{
			"Vertices":  func(o *sagemaker.QueryLineageOutput) any { return o.Vertices },
			"Edges":     func(o *sagemaker.QueryLineageOutput) any { return o.Edges },
			"NextToken": func(o *sagemaker.QueryLineageOutput) any { return o.NextToken },
		},
		driver.Params{
			"StartArns":  func() any { return p.StartArns },
			"Direction":  func() any { return deref(p.Direction) },
			"MaxDepth":   func() any { return deref(p.MaxDepth) },
			"MaxResults": func() any { return deref(p.MaxResults) },
		})
}

func queryLineageOp(c aws.SageMakerClient) driver.Operation[sagemaker.QueryLineageInput, sagemaker.QueryLineageOutput] {
	return driver.Operation[sagemaker.QueryLineageInput, sagemaker.QueryLineageOutput]{
		Name: "QueryLineage",
		Call: func(ctx context.Context, in *sagemaker.QueryLineageInput) (*sagemaker.QueryLineageOutput, error) {
			return c.QueryLineage(ctx, in)
		},
		SetCursor:  func(in *sagemaker.QueryLineageInput, cursor *string) { in.NextToken = cursor },
		NextCursor: func(out *sagemaker.QueryLineageOutput) *string { return out.NextToken },
	}
}
