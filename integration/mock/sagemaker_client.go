package mock

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
)

const arnPrefix = "arn:aws:sagemaker:eu-west-1:123456789012:"

// Call is one request received by SageMakerClient.
type Call struct {
	Operation string
	Cursor    string
}

// SageMakerClient implements aws.SageMakerClient. Every List operation serves
// Pages pages of two summaries each, chained by "<Operation>-<n>" tokens.
type SageMakerClient struct {
	Pages int

	mu     sync.Mutex
	errors map[string]error // keyed by operation or "operation/cursor"
	calls  []Call
}

// NewSageMakerClient creates a client serving pages pages per listing.
func NewSageMakerClient(pages int) *SageMakerClient {
	return &SageMakerClient{Pages: pages, errors: make(map[string]error)}
}

// FailOn makes calls to operation fail with err. A non-empty cursor limits
// the failure to the call carrying that cursor.
func (m *SageMakerClient) FailOn(operation, cursor string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := operation
	if cursor != "" {
		key += "/" + cursor
	}
	m.errors[key] = err
}

// Calls returns the received requests in order.
func (m *SageMakerClient) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallsTo returns the cursors sent to operation.
func (m *SageMakerClient) CallsTo(operation string) []string {
	var cursors []string
	for _, c := range m.Calls() {
		if c.Operation == operation {
			cursors = append(cursors, c.Cursor)
		}
	}
	return cursors
}

// record logs the call and returns the zero-based page index and next token.
func (m *SageMakerClient) record(operation string, token *string) (int, *string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cursor := aws.ToString(token)
	m.calls = append(m.calls, Call{Operation: operation, Cursor: cursor})
	if err := m.errors[operation+"/"+cursor]; err != nil {
		return 0, nil, err
	}
	if err := m.errors[operation]; err != nil {
		return 0, nil, err
	}

	page := 0
	if cursor != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(cursor, operation+"-"))
		if err != nil || n < 1 || n >= m.Pages {
			return 0, nil, fmt.Errorf("ValidationException: invalid NextToken %q", cursor)
		}
		page = n
	}
	if page+1 >= m.Pages {
		return page, nil, nil
	}
	return page, aws.String(fmt.Sprintf("%s-%d", operation, page+1)), nil
}

// names returns the two entity names of a page.
func names(prefix string, page int) []string {
	return []string{fmt.Sprintf("%s-%d", prefix, 2*page), fmt.Sprintf("%s-%d", prefix, 2*page+1)}
}

func (m *SageMakerClient) QueryLineage(ctx context.Context, in *sagemaker.QueryLineageInput, _ ...func(*sagemaker.Options)) (*sagemaker.QueryLineageOutput, error) {
	page, next, err := m.record("QueryLineage", in.NextToken)
	if err != nil {
		return nil, err
	}
	out := &sagemaker.QueryLineageOutput{NextToken: next}
	for _, n := range names("artifact", page) {
		out.Vertices = append(out.Vertices, types.Vertex{Arn: aws.String(arnPrefix + "artifact/" + n), Type: aws.String("DataSet"), LineageType: types.LineageTypeArtifact})
	}
	return out, nil
}

func (m *SageMakerClient) ListTrainingJobs(ctx context.Context, in *sagemaker.ListTrainingJobsInput, _ ...func(*sagemaker.Options)) (*sagemaker.ListTrainingJobsOutput, error) {
	page, next, err := m.record("ListTrainingJobs", in.NextToken)
	if err != nil {
		return nil, err
	}
	out := &sagemaker.ListTrainingJobsOutput{NextToken: next}
	for _, n := range names("job", page) {
		out.TrainingJobSummaries = append(out.TrainingJobSummaries, types.TrainingJobSummary{
			TrainingJobName:   aws.String(n),
			TrainingJobArn:    aws.String(arnPrefix + "training-job/" + n),
			TrainingJobStatus: types.TrainingJobStatusCompleted,
		})
	}
	return out, nil
}

func (m *SageMakerClient) ListModels(ctx context.Context, in *sagemaker.ListModelsInput, _ ...func(*sagemaker.Options)) (*sagemaker.ListModelsOutput, error) {
	page, next, err := m.record("ListModels", in.NextToken)
	if err != nil {
		return nil, err
	}
	out := &sagemaker.ListModelsOutput{NextToken: next}
	for _, n := range names("model", page) {
		out.Models = append(out.Models, types.ModelSummary{ModelName: aws.String(n), ModelArn: aws.String(arnPrefix + "model/" + n)})
	}
	return out, nil
}

func (m *SageMakerClient) ListPipelineExecutions(ctx context.Context, in *sagemaker.ListPipelineExecutionsInput, _ ...func(*sagemaker.Options)) (*sagemaker.ListPipelineExecutionsOutput, error) {
	page, next, err := m.record("ListPipelineExecutions", in.NextToken)
	if err != nil {
		return nil, err
	}
	out := &sagemaker.ListPipelineExecutionsOutput{NextToken: next}
	for _, n := range names("execution", page) {
		out.PipelineExecutionSummaries = append(out.PipelineExecutionSummaries, types.PipelineExecutionSummary{
			PipelineExecutionArn: aws.String(arnPrefix + "pipeline/" + aws.ToString(in.PipelineName) + "/execution/" + n),
		})
	}
	return out, nil
}

func (m *SageMakerClient) ListEndpoints(ctx context.Context, in *sagemaker.ListEndpointsInput, _ ...func(*sagemaker.Options)) (*sagemaker.ListEndpointsOutput, error) {
	page, next, err := m.record("ListEndpoints", in.NextToken)
	if err != nil {
		return nil, err
	}
	out := &sagemaker.ListEndpointsOutput{NextToken: next}
	for _, n := range names("endpoint", page) {
		out.Endpoints = append(out.Endpoints, types.EndpointSummary{
			EndpointName:   aws.String(n),
			EndpointArn:    aws.String(arnPrefix + "endpoint/" + n),
			EndpointStatus: types.EndpointStatusInService,
		})
	}
	return out, nil
}

func (m *SageMakerClient) ListClusterNodes(ctx context.Context, in *sagemaker.ListClusterNodesInput, _ ...func(*sagemaker.Options)) (*sagemaker.ListClusterNodesOutput, error) {
	page, next, err := m.record("ListClusterNodes", in.NextToken)
	if err != nil {
		return nil, err
	}
	out := &sagemaker.ListClusterNodesOutput{NextToken: next}
	for _, n := range names("i", page) {
		out.ClusterNodeSummaries = append(out.ClusterNodeSummaries, types.ClusterNodeSummary{InstanceId: aws.String(n), InstanceGroupName: aws.String("workers")})
	}
	return out, nil
}

func (m *SageMakerClient) CreateModel(ctx context.Context, in *sagemaker.CreateModelInput, _ ...func(*sagemaker.Options)) (*sagemaker.CreateModelOutput, error) {
	if _, _, err := m.record("CreateModel", nil); err != nil {
		return nil, err
	}
	return &sagemaker.CreateModelOutput{ModelArn: aws.String(arnPrefix + "model/" + aws.ToString(in.ModelName))}, nil
}

func (m *SageMakerClient) DescribeModel(ctx context.Context, in *sagemaker.DescribeModelInput, _ ...func(*sagemaker.Options)) (*sagemaker.DescribeModelOutput, error) {
	if _, _, err := m.record("DescribeModel", nil); err != nil {
		return nil, err
	}
	return &sagemaker.DescribeModelOutput{
		ModelName: in.ModelName,
		ModelArn:  aws.String(arnPrefix + "model/" + aws.ToString(in.ModelName)),
	}, nil
}

func (m *SageMakerClient) DeleteModel(ctx context.Context, in *sagemaker.DeleteModelInput, _ ...func(*sagemaker.Options)) (*sagemaker.DeleteModelOutput, error) {
	if _, _, err := m.record("DeleteModel", nil); err != nil {
		return nil, err
	}
	return &sagemaker.DeleteModelOutput{}, nil
}

func (m *SageMakerClient) UpdateWorkteam(ctx context.Context, in *sagemaker.UpdateWorkteamInput, _ ...func(*sagemaker.Options)) (*sagemaker.UpdateWorkteamOutput, error) {
	if _, _, err := m.record("UpdateWorkteam", nil); err != nil {
		return nil, err
	}
	return &sagemaker.UpdateWorkteamOutput{Workteam: &types.Workteam{
		WorkteamName: in.WorkteamName,
		WorkteamArn:  aws.String(arnPrefix + "workteam/private-crowd/" + aws.ToString(in.WorkteamName)),
		Description:  in.Description,
	}}, nil
}

func (m *SageMakerClient) StartPipelineExecution(ctx context.Context, in *sagemaker.StartPipelineExecutionInput, _ ...func(*sagemaker.Options)) (*sagemaker.StartPipelineExecutionOutput, error) {
	if _, _, err := m.record("StartPipelineExecution", nil); err != nil {
		return nil, err
	}
	return &sagemaker.StartPipelineExecutionOutput{
		PipelineExecutionArn: aws.String(arnPrefix + "pipeline/" + aws.ToString(in.PipelineName) + "/execution/1"),
	}, nil
}
