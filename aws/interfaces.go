// Package aws holds the narrow AWS service interfaces the rest of smpager
// depends on, together with thin implementations backed by the SDK clients.
// Every interface method mirrors the SDK signature so that *sagemaker.Client
// and friends satisfy them directly and tests can swap in fakes.
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
)

// SageMakerClient lists the SageMaker operations exposed as smpager commands.
type SageMakerClient interface {
	QueryLineage(ctx context.Context, params *sagemaker.QueryLineageInput, optFns ...func(*sagemaker.Options)) (*sagemaker.QueryLineageOutput, error)
	ListTrainingJobs(ctx context.Context, params *sagemaker.ListTrainingJobsInput, optFns ...func(*sagemaker.Options)) (*sagemaker.ListTrainingJobsOutput, error)
	ListModels(ctx context.Context, params *sagemaker.ListModelsInput, optFns ...func(*sagemaker.Options)) (*sagemaker.ListModelsOutput, error)
	ListPipelineExecutions(ctx context.Context, params *sagemaker.ListPipelineExecutionsInput, optFns ...func(*sagemaker.Options)) (*sagemaker.ListPipelineExecutionsOutput, error)
	ListEndpoints(ctx context.Context, params *sagemaker.ListEndpointsInput, optFns ...func(*sagemaker.Options)) (*sagemaker.ListEndpointsOutput, error)
	ListClusterNodes(ctx context.Context, params *sagemaker.ListClusterNodesInput, optFns ...func(*sagemaker.Options)) (*sagemaker.ListClusterNodesOutput, error)
	CreateModel(ctx context.Context, params *sagemaker.CreateModelInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateModelOutput, error)
	DescribeModel(ctx context.Context, params *sagemaker.DescribeModelInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeModelOutput, error)
	DeleteModel(ctx context.Context, params *sagemaker.DeleteModelInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DeleteModelOutput, error)
	UpdateWorkteam(ctx context.Context, params *sagemaker.UpdateWorkteamInput, optFns ...func(*sagemaker.Options)) (*sagemaker.UpdateWorkteamOutput, error)
	StartPipelineExecution(ctx context.Context, params *sagemaker.StartPipelineExecutionInput, optFns ...func(*sagemaker.Options)) (*sagemaker.StartPipelineExecutionOutput, error)
}

// DynamoDBClient is used by the DynamoDB result sink.
type DynamoDBClient interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// S3Client is used for cursor checkpoints and run reports.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// IAMClient is used by the preflight permission check.
type IAMClient interface {
	SimulatePrincipalPolicy(ctx context.Context, params *iam.SimulatePrincipalPolicyInput, optFns ...func(*iam.Options)) (*iam.SimulatePrincipalPolicyOutput, error)
}

// Compile-time interface checks to ensure implementations satisfy interfaces
var (
	_ SageMakerClient = (*SageMakerClientImpl)(nil)
	_ DynamoDBClient  = (*DynamoDBClientImpl)(nil)
	_ S3Client        = (*S3ClientImpl)(nil)
	_ IAMClient       = (*IAMClientImpl)(nil)

	// AWS SDK interface checks to ensure SDK clients satisfy interfaces
	_ SageMakerClient = (*sagemaker.Client)(nil)
	_ DynamoDBClient  = (*dynamodb.Client)(nil)
	_ S3Client        = (*s3.Client)(nil)
	_ IAMClient       = (*iam.Client)(nil)
)
