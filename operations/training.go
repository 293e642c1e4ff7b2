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

// ListTrainingJobsParams mirrors ListTrainingJobsInput.
type ListTrainingJobsParams struct {
	NameContains           *string    `json:"nameContains,omitempty"`
	StatusEquals           *string    `json:"statusEquals,omitempty"`
	CreationTimeAfter      *time.Time `json:"creationTimeAfter,omitempty"`
	CreationTimeBefore     *time.Time `json:"creationTimeBefore,omitempty"`
	LastModifiedTimeAfter  *time.Time `json:"lastModifiedTimeAfter,omitempty"`
	LastModifiedTimeBefore *time.Time `json:"lastModifiedTimeBefore,omitempty"`
	SortBy                 *string    `json:"sortBy,omitempty"`
	SortOrder              *string    `json:"sortOrder,omitempty"`
	MaxResults             *int32     `json:"maxResults,omitempty"`
}

// Flags implements Params.
func (p *ListTrainingJobsParams) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "name-contains", Usage: "Only jobs whose name contains this string"},
		&cli.StringFlag{Name: "status-equals", Usage: "InProgress|Completed|Failed|Stopping|Stopped"},
		timeFlag("creation-time-after", "Only jobs created after"),
		timeFlag("creation-time-before", "Only jobs created before"),
		timeFlag("last-modified-time-after", "Only jobs modified after"),
		timeFlag("last-modified-time-before", "Only jobs modified before"),
		&cli.StringFlag{Name: "sort-by", Usage: "Name|CreationTime|Status"},
		sortOrderFlag("Ascending|Descending"),
		maxResultsFlag(),
	}
}

// Bind implements Params.
func (p *ListTrainingJobsParams) Bind(c *cli.Context) error {
	bindString(c, "name-contains", &p.NameContains)
	bindString(c, "status-equals", &p.StatusEquals)
	bindString(c, "sort-by", &p.SortBy)
	bindString(c, "sort-order", &p.SortOrder)
	bindInt32(c, "max-results", &p.MaxResults)
	for name, dst := range map[string]**time.Time{
		"creation-time-after":       &p.CreationTimeAfter,
		"creation-time-before":      &p.CreationTimeBefore,
		"last-modified-time-after":  &p.LastModifiedTimeAfter,
		"last-modified-time-before": &p.LastModifiedTimeBefore,
	} {
		if err := bindTime(c, name, dst); err != nil {
			return err
		}
	}
	return nil
}

// Build returns the ListTrainingJobs request with only the set fields assigned.
func (p *ListTrainingJobsParams) Build() *sagemaker.ListTrainingJobsInput {
	in := &sagemaker.ListTrainingJobsInput{
		NameContains:           p.NameContains,
		CreationTimeAfter:      p.CreationTimeAfter,
		CreationTimeBefore:     p.CreationTimeBefore,
		LastModifiedTimeAfter:  p.LastModifiedTimeAfter,
		LastModifiedTimeBefore: p.LastModifiedTimeBefore,
		MaxResults:             p.MaxResults,
	}
	if p.StatusEquals != nil {
		in.StatusEquals = types.TrainingJobStatus(*p.StatusEquals)
	}
	if p.SortBy != nil {
		in.SortBy = types.SortBy(*p.SortBy)
	}
	if p.SortOrder != nil {
		in.SortOrder = types.SortOrder(*p.SortOrder)
	}
	return in
}

// Invoke implements Params.
func (p *ListTrainingJobsParams) Invoke(ctx context.Context, call Call) (iter.Seq[driver.Result], error) {
	return invoke(ctx, call, listTrainingJobsOp(call.Client), p.Build(), "TrainingJobSummaries",
		driver.Fields[sagemaker.ListTrainingJobsOutput]{
			"TrainingJobSummaries": func(o *sagemaker.ListTrainingJobsOutput) any { return o.TrainingJobSummaries },
			"NextToken":            func(o *sagemaker.ListTrainingJobsOutput) any { return o.NextToken },
		},
		driver.Params{
			"NameContains": func() any { return deref(p.NameContains) },
			"StatusEquals": func() any { return deref(p.StatusEquals) },
			"SortBy":       func() any { return deref(p.SortBy) },
			"SortOrder":    func() any { return deref(p.SortOrder) },
			"MaxResults":   func() any { return deref(p.MaxResults) },
		})
}

func listTrainingJobsOp(c aws.SageMakerClient) driver.Operation[sagemaker.ListTrainingJobsInput, sagemaker.ListTrainingJobsOutput] {
	return driver.Operation[sagemaker.ListTrainingJobsInput, sagemaker.ListTrainingJobsOutput]{
		Name: "ListTrainingJobs",
		Call: func(ctx context.Context, in *sagemaker.ListTrainingJobsInput) (*sagemaker.ListTrainingJobsOutput, error) {
			return c.ListTrainingJobs(ctx, in)
		},
		SetCursor:  func(in *sagemaker.ListTrainingJobsInput, cursor *string) { in.NextToken = cursor },
		NextCursor: func(out *sagemaker.ListTrainingJobsOutput) *string { return out.NextToken },
	}
}
