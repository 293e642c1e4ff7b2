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

// ListClusterNodesParams mirrors ListClusterNodesInput.
type ListClusterNodesParams struct {
	ClusterName               *string    `json:"clusterName,omitempty"`
	InstanceGroupNameContains *string    `json:"instanceGroupNameContains,omitempty"`
	CreationTimeAfter         *time.Time `json:"creationTimeAfter,omitempty"`
	CreationTimeBefore        *time.Time `json:"creationTimeBefore,omitempty"`
	SortBy                    *string    `json:"sortBy,omitempty"`
	SortOrder                 *string    `json:"sortOrder,omitempty"`
	MaxResults                *int32     `json:"maxResults,omitempty"`
}

// Flags implements Params.
func (p *ListClusterNodesParams) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "cluster-name", Usage: "Name or ARN of the cluster", Required: true},
		&cli.StringFlag{Name: "instance-group-name-contains", Usage: "Only nodes in instance groups matching this string"},
		timeFlag("creation-time-after", "Only nodes launched after"),
		timeFlag("creation-time-before", "Only nodes launched before"),
		&cli.StringFlag{Name: "sort-by", Usage: "CREATION_TIME|NAME"},
		sortOrderFlag("Ascending|Descending"),
		maxResultsFlag(),
	}
}

// Bind implements Params.
func (p *ListClusterNodesParams) Bind(c *cli.Context) error {
	bindString(c, "cluster-name", &p.ClusterName)
	bindString(c, "instance-group-name-contains", &p.InstanceGroupNameContains)
	bindString(c, "sort-by", &p.SortBy)
	bindString(c, "sort-order", &p.SortOrder)
	bindInt32(c, "max-results", &p.MaxResults)
	if err := bindTime(c, "creation-time-after", &p.CreationTimeAfter); err != nil {
		return err
	}
	return bindTime(c, "creation-time-before", &p.CreationTimeBefore)
}

// Build returns the ListClusterNodes request with only the set fields assigned.
func (p *ListClusterNodesParams) Build() *sagemaker.ListClusterNodesInput {
	in := &sagemaker.ListClusterNodesInput{
		ClusterName:               p.ClusterName,
		InstanceGroupNameContains: p.InstanceGroupNameContains,
		CreationTimeAfter:         p.CreationTimeAfter,
		CreationTimeBefore:        p.CreationTimeBefore,
		MaxResults:                p.MaxResults,
	}
	if p.SortBy != nil {
		in.SortBy = types.ClusterSortBy(*p.SortBy)
	}
	if p.SortOrder != nil {
		in.SortOrder = types.SortOrder(*p.SortOrder)
	}
	return in
}

// Invoke implements Params.
func (p *ListClusterNodesParams) Invoke(ctx context.Context, call Call) (iter.Seq[driver.Result], error) {
	return invoke(ctx, call, listClusterNodesOp(call.Client), p.Build(), "ClusterNodeSummaries",
		driver.Fields[sagemaker.ListClusterNodesOutput]{
			"ClusterNodeSummaries": func(o *sagemaker.ListClusterNodesOutput) any { return o.ClusterNodeSummaries },
			"NextToken":            func(o *sagemaker.ListClusterNodesOutput) any { return o.NextToken },
		},
		driver.Params{
			"ClusterName":               func() any { return deref(p.ClusterName) },
			"InstanceGroupNameContains": func() any { return deref(p.InstanceGroupNameContains) },
			"SortBy":                    func() any { return deref(p.SortBy) },
			"SortOrder":                 func() any { return deref(p.SortOrder) },
			"MaxResults":                func() any { return deref(p.MaxResults) },
		})
}

func listClusterNodesOp(c aws.SageMakerClient) driver.Operation[sagemaker.ListClusterNodesInput, sagemaker.ListClusterNodesOutput] {
	return driver.Operation[sagemaker.ListClusterNodesInput, sagemaker.ListClusterNodesOutput]{
		Name: "ListClusterNodes",
		Call: func(ctx context.Context, in *sagemaker.ListClusterNodesInput) (*sagemaker.ListClusterNodesOutput, error) {
			return c.ListClusterNodes(ctx, in)
		},
		SetCursor:  func(in *sagemaker.ListClusterNodesInput, cursor *string) { in.NextToken = cursor },
		NextCursor: func(out *sagemaker.ListClusterNodesOutput) *string { return out.NextToken },
	}
}
