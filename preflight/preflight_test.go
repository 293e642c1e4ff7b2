package preflight

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
)

type mockIAM struct {
	decisions map[string]types.PolicyEvaluationDecisionType
	pageSize  int
	calls     int
	err       error
}

func (m *mockIAM) SimulatePrincipalPolicy(ctx context.Context, in *iam.SimulatePrincipalPolicyInput, _ ...func(*iam.Options)) (*iam.SimulatePrincipalPolicyOutput, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	start := 0
	if in.Marker != nil {
		start = len(*in.Marker)
	}
	end := len(in.ActionNames)
	if m.pageSize > 0 && start+m.pageSize < end {
		end = start + m.pageSize
	}

	out := &iam.SimulatePrincipalPolicyOutput{}
	for _, a := range in.ActionNames[start:end] {
		name := a
		decision, ok := m.decisions[a]
		if !ok {
			decision = types.PolicyEvaluationDecisionTypeImplicitDeny
		}
		out.EvaluationResults = append(out.EvaluationResults, types.EvaluationResult{EvalActionName: &name, EvalDecision: decision})
	}
	if end < len(in.ActionNames) {
		marker := make([]byte, end)
		for i := range marker {
			marker[i] = 'x'
		}
		s := string(marker)
		out.IsTruncated = true
		out.Marker = &s
	}
	return out, nil
}

const principal = "arn:aws:iam::123456789012:role/reader"

func TestCheckAllowed(t *testing.T) {
	client := &mockIAM{decisions: map[string]types.PolicyEvaluationDecisionType{
		"sagemaker:ListModels": types.PolicyEvaluationDecisionTypeAllowed,
	}}
	c := New(client, principal)
	if err := c.Check(context.Background(), "sagemaker:ListModels"); err != nil {
		t.Fatalf("expected allowed, got %v", err)
	}
	if err := c.Check(context.Background(), "sagemaker:ListModels"); err != nil {
		t.Fatalf("expected allowed, got %v", err)
	}
	if client.calls != 1 {
		t.Errorf("expected cached decision, got %d calls", client.calls)
	}
}

func TestCheckDenied(t *testing.T) {
	client := &mockIAM{decisions: map[string]types.PolicyEvaluationDecisionType{
		"sagemaker:ListModels":  types.PolicyEvaluationDecisionTypeAllowed,
		"sagemaker:DeleteModel": types.PolicyEvaluationDecisionTypeExplicitDeny,
	}}
	c := New(client, principal)
	err := c.Check(context.Background(), "sagemaker:ListModels", "sagemaker:DeleteModel", "sagemaker:CreateModel")
	if !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied, got %v", err)
	}
	var denied *DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected *DeniedError, got %T", err)
	}
	if len(denied.Actions) != 2 || denied.Actions[0] != "sagemaker:CreateModel" || denied.Actions[1] != "sagemaker:DeleteModel" {
		t.Errorf("unexpected denied actions %v", denied.Actions)
	}
}

func TestCheckFollowsMarker(t *testing.T) {
	client := &mockIAM{
		pageSize: 1,
		decisions: map[string]types.PolicyEvaluationDecisionType{
			"sagemaker:ListModels":    types.PolicyEvaluationDecisionTypeAllowed,
			"sagemaker:ListEndpoints": types.PolicyEvaluationDecisionTypeAllowed,
		},
	}
	c := New(client, principal)
	if err := c.Check(context.Background(), "sagemaker:ListModels", "sagemaker:ListEndpoints"); err != nil {
		t.Fatalf("expected allowed, got %v", err)
	}
	if client.calls != 2 {
		t.Errorf("expected 2 simulator calls, got %d", client.calls)
	}
}

func TestCheckSimulatorError(t *testing.T) {
	c := New(&mockIAM{err: errors.New("AccessDenied: iam:SimulatePrincipalPolicy")}, principal)
	err := c.Check(context.Background(), "sagemaker:ListModels")
	if err == nil || errors.Is(err, ErrDenied) {
		t.Fatalf("expected simulator error, got %v", err)
	}
}
