package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
)

// SageMakerClientImpl implements SageMakerClient on top of *sagemaker.Client.
type SageMakerClientImpl struct {
	client *sagemaker.Client
}

// NewSageMakerClient creates a SageMaker client from an AWS configuration.
// A non-empty endpoint replaces the resolved service endpoint, which is how
// the tool is pointed at VPC endpoints or local stand-ins.
func NewSageMakerClient(cfg awssdk.Config, endpoint string) *SageMakerClientImpl {
	client := sagemaker.NewFromConfig(cfg, func(o *sagemaker.Options) {
		if endpoint != "" {
			o.BaseEndpoint = awssdk.String(endpoint)
		}
	})
	return &SageMakerClientImpl{client: client}
}

// QueryLineage implements the SageMakerClient interface for lineage queries
func (c *SageMakerClientImpl) QueryLineage(ctx context.Context, params *sagemaker.QueryLineageInput, optFns ...func(*sagemaker.Options)) (*sagemaker.QueryLineageOutput, error) {
	return c.client.QueryLineage(ctx, params, optFns...)
}

// ListTrainingJobs implements the SageMakerClient interface for listing training jobs
func (c *SageMakerClientImpl) ListTrainingJobs(ctx context.Context, params *sagemaker.ListTrainingJobsInput, optFns ...func(*sagemaker.Options)) (*sagemaker.ListTrainingJobsOutput, error) {
	return c.client.ListTrainingJobs(ctx, params, optFns...)
}

// ListModels implements the SageMakerClient interface for listing models
func (c *SageMakerClientImpl) ListModels(ctx context.Context, params *sagemaker.ListModelsInput, optFns ...func(*sagemaker.Options)) (*sagemaker.ListModelsOutput, error) {
	return c.client.ListModels(ctx, params, optFns...)
}

// ListPipelineExecutions implements the SageMakerClient interface for listing pipeline executions
func (c *SageMakerClientImpl) ListPipelineExecutions(ctx context.Context, params *sagemaker.ListPipelineExecutionsInput, optFns ...func(*sagemaker.Options)) (*sagemaker.ListPipelineExecutionsOutput, error) {
	return c.client.ListPipelineExecutions(ctx, params, optFns...)
}

// ListEndpoints implements the SageMakerClient interface for listing endpoints
func (c *SageMakerClientImpl) ListEndpoints(ctx context.Context, params *sagemaker.ListEndpointsInput, optFns ...func(*sagemaker.Options)) (*sagemaker.ListEndpointsOutput, error) {
	return c.client.ListEndpoints(ctx, params, optFns...)
}

// ListClusterNodes implements the SageMakerClient interface for listing cluster nodes
func (c *SageMakerClientImpl) ListClusterNodes(ctx context.Context, params *sagemaker.ListClusterNodesInput, optFns ...func(*sagemaker.Options)) (*sagemaker.ListClusterNodesOutput, error) {
	return c.client.ListClusterNodes(ctx, params, optFns...)
}

// CreateModel implements the SageMakerClient interface for creating models
func (c *SageMakerClientImpl) CreateModel(ctx context.Context, params *sagemaker.CreateModelInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateModelOutput, error) {
	return c.client.CreateModel(ctx, params, optFns...)
}

// DescribeModel implements the SageMakerClient interface for describing models
func (c *SageMakerClientImpl) DescribeModel(ctx context.Context, params *sagemaker.DescribeModelInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeModelOutput, error) {
	return c.client.DescribeModel(ctx, params, optFns...)
}

// DeleteModel implements the SageMakerClient interface for deleting models
func (c *SageMakerClientImpl) DeleteModel(ctx context.Context, params *sagemaker.DeleteModelInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DeleteModelOutput, error) {
	return c.client.DeleteModel(ctx, params, optFns...)
}

// UpdateWorkteam implements the SageMakerClient interface for updating workteams
func (c *SageMakerClientImpl) UpdateWorkteam(ctx context.Context, params *sagemaker.UpdateWorkteamInput, optFns ...func(*sagemaker.Options)) (*sagemaker.UpdateWorkteamOutput, error) {
	return c.client.UpdateWorkteam(ctx, params, optFns...)
}

// StartPipelineExecution implements the SageMakerClient interface for starting pipeline executions
func (c *SageMakerClientImpl) StartPipelineExecution(ctx context.Context, params *sagemaker.StartPipelineExecutionInput, optFns ...func(*sagemaker.Options)) (*sagemaker.StartPipelineExecutionOutput, error) {
	return c.client.StartPipelineExecution(ctx, params, optFns...)
}

// DynamoDBClientImpl implements DynamoDBClient using the AWS SDK.
type DynamoDBClientImpl struct {
	client *dynamodb.Client
}

// NewDynamoDBClient creates a new DynamoDBClientImpl instance
func NewDynamoDBClient(client *dynamodb.Client) *DynamoDBClientImpl {
	return &DynamoDBClientImpl{client: client}
}

// BatchWriteItem implements the DynamoDBClient interface for batch writing items
func (c *DynamoDBClientImpl) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	return c.client.BatchWriteItem(ctx, params, optFns...)
}

// S3ClientImpl implements S3Client using the AWS SDK.
type S3ClientImpl struct {
	client *s3.Client
}

// NewS3Client creates a new S3ClientImpl instance
func NewS3Client(client *s3.Client) *S3ClientImpl {
	return &S3ClientImpl{client: client}
}

// GetObject implements the S3Client interface for reading objects
func (c *S3ClientImpl) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return c.client.GetObject(ctx, params, optFns...)
}

// PutObject implements the S3Client interface for writing objects
func (c *S3ClientImpl) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return c.client.PutObject(ctx, params, optFns...)
}

// IAMClientImpl implements IAMClient using the AWS SDK.
type IAMClientImpl struct {
	client *iam.Client
}

// NewIAMClient creates a new IAMClientImpl instance
func NewIAMClient(client *iam.Client) *IAMClientImpl {
	return &IAMClientImpl{client: client}
}

// SimulatePrincipalPolicy implements the IAMClient interface for permission simulation
func (c *IAMClientImpl) SimulatePrincipalPolicy(ctx context.Context, params *iam.SimulatePrincipalPolicyInput, optFns ...func(*iam.Options)) (*iam.SimulatePrincipalPolicyOutput, error) {
	return c.client.SimulatePrincipalPolicy(ctx, params, optFns...)
}
