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

// ListEndpointsParams mirrors ListEndpointsInput.
type ListEndpointsParams struct {
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
func (p *ListEndpointsParams) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "name-contains", Usage: "Only endpoints whose name contains this string"},
		&cli.StringFlag{Name: "status-equals", Usage: "OutOfService|Creating|Updating|InService|Failed|..."},
		timeFlag("creation-time-after", "Only endpoints created after"),
		timeFlag("creation-time-before", "Only endpoints created before"),
		timeFlag("last-modified-time-after", "Only endpoints modified after"),
		timeFlag("last-modified-time-before", "Only endpoints modified before"),
		&cli.StringFlag{Name: "sort-by", Usage: "Name|CreationTime|Status"},
		sortOrderFlag("Ascending|Descending"),
		maxResultsFlag(),
	}
}

// Bind implements Params.
func (p *ListEndpointsParams) Bind(c *cli.Context) error {
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

// Build returns the ListEndpoints request with only the set fields assigned.
func (p *ListEndpointsParams) Build() *sagemaker.ListEndpointsInput {
	in := &sagemaker.ListEndpointsInput{
		NameContains:           p.NameContains,
		CreationTimeAfter:      p.CreationTimeAfter,
		CreationTimeBefore:     p.CreationTimeBefore,
		LastModifiedTimeAfter:  p.LastModifiedTimeAfter,
		LastModifiedTimeBefore: p.LastModifiedTimeBefore,
		MaxResults:             p.MaxResults,
	}
	if p.StatusEquals != nil {
		in.StatusEquals = types.EndpointStatus(*p.StatusEquals)
	}
	if p.SortBy != nil {
		in.SortBy = types.EndpointSortKey(*p.SortBy)
	}
	if p.SortOrder != nil {
		in.SortOrder = types.OrderKey(*p.SortOrder)
	}
	return in
}

// Invoke implements Params.
func (p *ListEndpointsParams) Invoke(ctx context.Context, call Call) (iter.Seq[driver.Result], error) {
	return invoke(ctx, call, listEndpointsOp(call.Client), p.Build(), "Endpoints",
		driver.Fields[sagemaker.ListEndpointsOutput]{
			"Endpoints": func(o *sagemaker.ListEndpointsOutput) any { return o.Endpoints },
			"NextToken": func(o *sagemaker.ListEndpointsOutput) any { return o.NextToken },
		},
		driver.Params{
			"NameContains": func() any { return deref(p.NameContains) },
			"StatusEquals": func() any { return deref(p.StatusEquals) },
			"SortBy":       func() any { return deref(p.SortBy) },
			"SortOrder":    func() any { return deref(p.SortOrder) },
			"MaxResults":   func() any { return deref(p.MaxResults) },
		})
}

func listEndpointsOp(c aws.SageMakerClient) driver.Operation[sagemaker.ListEndpointsInput, sagemaker.ListEndpointsOutput] {
	return driver.Operation[sagemaker.ListEndpointsInput, sagemaker.ListEndpointsOutput]{
		Name: "ListEndpoints",
		Call: func(ctx context.Context, in *sagemaker.ListEndpointsInput) (*sagemaker.ListEndpointsOutput, error) {
			return c.ListEndpoints(ctx, in)
		},
		SetCursor:  func(in *sagemaker.ListEndpointsInput, cursor *string) { in.NextToken = cursor },
		NextCursor: func(out *sagemaker.ListEndpointsOutput) *string { return out.NextToken },
	}
}
