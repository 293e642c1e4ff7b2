// Package preflight checks with the IAM policy simulator that a principal may
// call the SageMaker actions a run needs, before any SageMaker call is made.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/gurre/smpager/aws"
	"github.com/gurre/smpager/logging"
	"github.com/rs/zerolog"
)

// ErrDenied is matched by DeniedError.
var ErrDenied = errors.New("action denied")

// DeniedError lists the actions the principal may not call.
type DeniedError struct {
	Principal string
	Actions   []string // sorted
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s is not allowed to call %s", e.Principal, strings.Join(e.Actions, ", "))
}

func (e *DeniedError) Is(target error) bool {
	return target == ErrDenied
}

// Checker simulates the principal's policies. Decisions are cached, so batch
// runs ask once per action.
type Checker struct {
	client    aws.IAMClient
	principal string
	logger    zerolog.Logger

	mu      sync.Mutex
	allowed map[string]bool
}

// New creates a Checker for the principal ARN.
func New(client aws.IAMClient, principal string) *Checker {
	return &Checker{
		client:    client,
		principal: principal,
		logger:    logging.NewLogger("preflight"),
		allowed:   make(map[string]bool),
	}
}

// Check returns a *DeniedError when any action is not allowed.
func (c *Checker) Check(ctx context.Context, actions ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var unknown []string
	for _, a := range actions {
		if _, ok := c.allowed[a]; !ok {
			unknown = append(unknown, a)
		}
	}
	if len(unknown) > 0 {
		if err := c.simulate(ctx, unknown); err != nil {
			return err
		}
	}

	var denied []string
	for _, a := range actions {
		if !c.allowed[a] {
			denied = append(denied, a)
		}
	}
	if len(denied) > 0 {
		sort.Strings(denied)
		return &DeniedError{Principal: c.principal, Actions: denied}
	}
	return nil
}

// simulate follows the simulator's Marker until every result is read.
func (c *Checker) simulate(ctx context.Context, actions []string) error {
	input := &iam.SimulatePrincipalPolicyInput{
		PolicySourceArn: &c.principal,
		ActionNames:     actions,
	}
	for {
		out, err := c.client.SimulatePrincipalPolicy(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to simulate policy for %s: %w", c.principal, err)
		}
		for _, r := range out.EvaluationResults {
			if r.EvalActionName == nil {
				continue
			}
			ok := r.EvalDecision == types.PolicyEvaluationDecisionTypeAllowed
			c.allowed[*r.EvalActionName] = ok
			c.logger.Debug().
				Str("action", *r.EvalActionName).
				Str("decision", string(r.EvalDecision)).
				Msg("Simulated action")
		}
		if !out.IsTruncated || out.Marker == nil {
			break
		}
		input.Marker = out.Marker
	}

	// An action the simulator did not report on is treated as denied.
	for _, a := range actions {
		if _, ok := c.allowed[a]; !ok {
			c.allowed[a] = false
		}
	}
	return nil
}
