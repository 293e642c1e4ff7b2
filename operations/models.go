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

// ListModelsParams mirrors ListModelsInput.
type ListModelsParams struct {
	NameContains       *string    `json:"nameContains,omitempty"`
	CreationTimeAfter  *time.Time `json:"creationTimeAfter,omitempty"`
	CreationTimeBefore *time.Time `json:"creationTimeBefore,omitempty"`
	SortBy             *string    `json:"sortBy,omitempty"`
	SortOrder          *string    `json:"sortOrder,omitempty"`
	MaxResults         *int32     `json:"maxResults,omitempty"`
}

// Flags implements Params.
func (p *ListModelsParams) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "name-contains", Usage: "Only models whose name contains this string"},
		timeFlag("creation-time-after", "Only models created after"),
		timeFlag("creation-time-before", "Only models created before"),
		&cli.StringFlag{Name: "sort-by", Usage: "Name|CreationTime"},
		sortOrderFlag("Ascending|Descending"),
		maxResultsFlag(),
	}
}

// Bind implements Params.
func (p *ListModelsParams) Bind(c *cli.Context) error {
	bindString(c, "name-contains", &p.NameContains)
	bindString(c, "sort-by", &p.SortBy)
	bindString(c, "sort-order", &p.SortOrder)
	bindInt32(c, "max-results", &p.MaxResults)
	if err := bindTime(c, "creation-time-after", &p.CreationTimeAfter); err != nil {
		return err
	}
	return bindTime(c, "creation-time-before", &p.CreationTimeBefore)
}

// Build returns the ListModels request with only the set fields assigned.
func (p *ListModelsParams) Build() *sagemaker.ListModelsInput {
	in := &sagemaker.ListModelsInput{
		NameContains:       p.NameContains,
		CreationTimeAfter:  p.CreationTimeAfter,
		CreationTimeBefore: p.CreationTimeBefore,
		MaxResults:         p.MaxResults,
	}
	if p.SortBy != nil {
		in.SortBy = types.ModelSortKey(*p.SortBy)
	}
	if p.SortOrder != nil {
		in.SortOrder = types.OrderKey(*p.SortOrder)
	}
	return in
}

// Invoke implements Params.
func (p *ListModelsParams) Invoke(ctx context.Context, call Call) (iter.Seq[driver.Result], error) {
	return invoke(ctx, call, listModelsOp(call.Client), p.Build(), "Models",
		driver.Fields[sagemaker.ListModelsOutput]{
			"Models":    func(o *sagemaker.ListModelsOutput) any { return o.Models },
			"NextToken": func(o *sagemaker.ListModelsOutput) any { return o.NextToken },
		},
		driver.Params{
			"NameContains": func() any { return deref(p.NameContains) },
			"SortBy":       func() any { return deref(p.SortBy) },
			"SortOrder":    func() any { return deref(p.SortOrder) },
			"MaxResults":   func() any { return deref(p.MaxResults) },
		})
}

func listModelsOp(c aws.SageMakerClient) driver.Operation[sagemaker.ListModelsInput, sagemaker.ListModelsOutput] {
	return driver.Operation[sagemaker.ListModelsInput, sagemaker.ListModelsOutput]{
		Name: "ListModels",
		Call: func(ctx context.Context, in *sagemaker.ListModelsInput) (*sagemaker.ListModelsOutput, error) {
			return c.ListModels(ctx, in)
		},
		SetCursor:  func(in *sagemaker.ListModelsInput, cursor *string) { in.NextToken = cursor },
		NextCursor: func(out *sagemaker.ListModelsOutput) *string { return out.NextToken },
	}
}

// CreateModelParams mirrors CreateModelInput. The PrimaryContainer* fields
// make up the optional ContainerDefinition block and the Vpc* fields the
// optional VpcConfig block.
type CreateModelParams struct {
	ModelName                   *string           `json:"modelName,omitempty"`
	ExecutionRoleArn            *string           `json:"executionRoleArn,omitempty"`
	PrimaryContainerImage       *string           `json:"primaryContainerImage,omitempty"`
	PrimaryContainerModelData   *string           `json:"primaryContainerModelDataUrl,omitempty"`
	PrimaryContainerHostname    *string           `json:"primaryContainerHostname,omitempty"`
	PrimaryContainerEnvironment map[string]string `json:"primaryContainerEnvironment,omitempty"`
	EnableNetworkIsolation      *bool             `json:"enableNetworkIsolation,omitempty"`
	VpcSecurityGroupIds         []string          `json:"vpcSecurityGroupIds,omitempty"`
	VpcSubnets                  []string          `json:"vpcSubnets,omitempty"`
	Tags                        map[string]string `json:"tags,omitempty"`
}

// Flags implements Params.
func (p *CreateModelParams) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "model-name", Usage: "Name of the new model", Required: true},
		&cli.StringFlag{Name: "execution-role-arn", Usage: "IAM role SageMaker assumes for the model"},
		&cli.StringFlag{Name: "primary-container-image", Usage: "Inference image URI"},
		&cli.StringFlag{Name: "primary-container-model-data-url", Usage: "S3 URI of the model artifacts"},
		&cli.StringFlag{Name: "primary-container-hostname", Usage: "Container hostname"},
		&cli.StringSliceFlag{Name: "primary-container-environment", Usage: "Container environment key=value (repeatable)"},
		&cli.BoolFlag{Name: "enable-network-isolation", Usage: "Isolate the container from the network"},
		&cli.StringSliceFlag{Name: "vpc-security-group-id", Usage: "VPC security group (repeatable)"},
		&cli.StringSliceFlag{Name: "vpc-subnet", Usage: "VPC subnet (repeatable)"},
		&cli.StringSliceFlag{Name: "tag", Usage: "Tag key=value (repeatable)"},
	}
}

// Bind implements Params.
func (p *CreateModelParams) Bind(c *cli.Context) error {
	bindString(c, "model-name", &p.ModelName)
	bindString(c, "execution-role-arn", &p.ExecutionRoleArn)
	bindString(c, "primary-container-image", &p.PrimaryContainerImage)
	bindString(c, "primary-container-model-data-url", &p.PrimaryContainerModelData)
	bindString(c, "primary-container-hostname", &p.PrimaryContainerHostname)
	bindBool(c, "enable-network-isolation", &p.EnableNetworkIsolation)
	bindStrings(c, "vpc-security-group-id", &p.VpcSecurityGroupIds)
	bindStrings(c, "vpc-subnet", &p.VpcSubnets)
	if err := bindMap(c, "primary-container-environment", &p.PrimaryContainerEnvironment); err != nil {
		return err
	}
	return bindMap(c, "tag", &p.Tags)
}

// Build returns the request. PrimaryContainer and VpcConfig stay nil unless
// one of their fields was supplied.
func (p *CreateModelParams) Build() *sagemaker.CreateModelInput {
	in := &sagemaker.CreateModelInput{
		ModelName:              p.ModelName,
		ExecutionRoleArn:       p.ExecutionRoleArn,
		EnableNetworkIsolation: p.EnableNetworkIsolation,
	}

	container := &types.ContainerDefinition{}
	containerSet := false
	if p.PrimaryContainerImage != nil {
		container.Image = p.PrimaryContainerImage
		containerSet = true
	}
	if p.PrimaryContainerModelData != nil {
		container.ModelDataUrl = p.PrimaryContainerModelData
		containerSet = true
	}
	if p.PrimaryContainerHostname != nil {
		container.ContainerHostname = p.PrimaryContainerHostname
		containerSet = true
	}
	if p.PrimaryContainerEnvironment != nil {
		container.Environment = p.PrimaryContainerEnvironment
		containerSet = true
	}
	if containerSet {
		in.PrimaryContainer = container
	}

	vpc := &types.VpcConfig{}
	vpcSet := false
	if p.VpcSecurityGroupIds != nil {
		vpc.SecurityGroupIds = p.VpcSecurityGroupIds
		vpcSet = true
	}
	if p.VpcSubnets != nil {
		vpc.Subnets = p.VpcSubnets
		vpcSet = true
	}
	if vpcSet {
		in.VpcConfig = vpc
	}

	if p.Tags != nil {
		for _, k := range sortedKeys(p.Tags) {
			key, value := k, p.Tags[k]
			in.Tags = append(in.Tags, types.Tag{Key: &key, Value: &value})
		}
	}
	return in
}

// Invoke implements Params.
func (p *CreateModelParams) Invoke(ctx context.Context, call Call) (iter.Seq[driver.Result], error) {
	return invoke(ctx, call, createModelOp(call.Client), p.Build(), "ModelArn",
		driver.Fields[sagemaker.CreateModelOutput]{
			"ModelArn": func(o *sagemaker.CreateModelOutput) any { return o.ModelArn },
		},
		driver.Params{
			"ModelName":        func() any { return deref(p.ModelName) },
			"ExecutionRoleArn": func() any { return deref(p.ExecutionRoleArn) },
		})
}

func createModelOp(c aws.SageMakerClient) driver.Operation[sagemaker.CreateModelInput, sagemaker.CreateModelOutput] {
	return driver.Operation[sagemaker.CreateModelInput, sagemaker.CreateModelOutput]{
		Name: "CreateModel",
		Call: func(ctx context.Context, in *sagemaker.CreateModelInput) (*sagemaker.CreateModelOutput, error) {
			return c.CreateModel(ctx, in)
		},
	}
}

// DescribeModelParams mirrors DescribeModelInput.
type DescribeModelParams struct {
	ModelName *string `json:"modelName,omitempty"`
}

// Flags implements Params.
func (p *DescribeModelParams) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "model-name", Usage: "Name of the model", Required: true},
	}
}

// Bind implements Params.
func (p *DescribeModelParams) Bind(c *cli.Context) error {
	bindString(c, "model-name", &p.ModelName)
	return nil
}

// Build returns the DescribeModel request with only the set fields assigned.
func (p *DescribeModelParams) Build() *sagemaker.DescribeModelInput {
	return &sagemaker.DescribeModelInput{ModelName: p.ModelName}
}

// Invoke implements Params.
func (p *DescribeModelParams) Invoke(ctx context.Context, call Call) (iter.Seq[driver.Result], error) {
	return invoke(ctx, call, describeModelOp(call.Client), p.Build(), "*",
		driver.Fields[sagemaker.DescribeModelOutput]{
			"ModelName":        func(o *sagemaker.DescribeModelOutput) any { return o.ModelName },
			"ModelArn":         func(o *sagemaker.DescribeModelOutput) any { return o.ModelArn },
			"ExecutionRoleArn": func(o *sagemaker.DescribeModelOutput) any { return o.ExecutionRoleArn },
			"PrimaryContainer": func(o *sagemaker.DescribeModelOutput) any { return o.PrimaryContainer },
			"Containers":       func(o *sagemaker.DescribeModelOutput) any { return o.Containers },
			"VpcConfig":        func(o *sagemaker.DescribeModelOutput) any { return o.VpcConfig },
			"CreationTime":     func(o *sagemaker.DescribeModelOutput) any { return o.CreationTime },
		},
		driver.Params{
			"ModelName": func() any { return deref(p.ModelName) },
		})
}

func describeModelOp(c aws.SageMakerClient) driver.Operation[sagemaker.DescribeModelInput, sagemaker.DescribeModelOutput] {
	return driver.Operation[sagemaker.DescribeModelInput, sagemaker.DescribeModelOutput]{
		Name: "DescribeModel",
		Call: func(ctx context.Context, in *sagemaker.DescribeModelInput) (*sagemaker.DescribeModelOutput, error) {
			return c.DescribeModel(ctx, in)
		},
	}
}

// DeleteModelParams mirrors DeleteModelInput. The response has no fields, so
// callers that want the deleted name back select '^ModelName'.
type DeleteModelParams struct {
	ModelName *string `json:"modelName,omitempty"`
}

// Flags implements Params.
func (p *DeleteModelParams) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "model-name", Usage: "Name of the model to delete", Required: true},
	}
}

// Bind implements Params.
func (p *DeleteModelParams) Bind(c *cli.Context) error {
	bindString(c, "model-name", &p.ModelName)
	return nil
}

// Build returns the DeleteModel request with only the set fields assigned.
func (p *DeleteModelParams) Build() *sagemaker.DeleteModelInput {
	return &sagemaker.DeleteModelInput{ModelName: p.ModelName}
}

// Invoke implements Params.
func (p *DeleteModelParams) Invoke(ctx context.Context, call Call) (iter.Seq[driver.Result], error) {
	return invoke(ctx, call, deleteModelOp(call.Client), p.Build(), "*",
		driver.Fields[sagemaker.DeleteModelOutput]{},
		driver.Params{
			"ModelName": func() any { return deref(p.ModelName) },
		})
}

func deleteModelOp(c aws.SageMakerClient) driver.Operation[sagemaker.DeleteModelInput, sagemaker.DeleteModelOutput] {
	return driver.Operation[sagemaker.DeleteModelInput, sagemaker.DeleteModelOutput]{
		Name: "DeleteModel",
		Call: func(ctx context.Context, in *sagemaker.DeleteModelInput) (*sagemaker.DeleteModelOutput, error) {
			return c.DeleteModel(ctx, in)
		},
	}
}
