// Package policy decides which delivery actions a survey row offers, using an
// OPA rego policy.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	"github.com/xiaot623/formdesk/internal/domain"
)

// Action is a delivery action offered on a survey row.
type Action string

const (
	ActionNone  Action = "none"
	ActionStart Action = "start"
	ActionStop  Action = "stop"
)

// Target returns the delivery status the action switches the survey to.
func (a Action) Target() (domain.DeliveryStatus, bool) {
	switch a {
	case ActionStart:
		return domain.DeliveryStatusLaunched, true
	case ActionStop:
		return domain.DeliveryStatusStopped, true
	}
	return "", false
}

// Decision is the result of evaluating the delivery policy for one survey.
type Decision struct {
	Action    Action
	ShareLink bool
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.delivery_policy.decision"),
		rego.Module("delivery_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate returns the actions allowed on the survey.
func (e *Engine) Evaluate(ctx context.Context, survey *domain.Survey) (Decision, error) {
	input := map[string]interface{}{
		"parse_status":    string(survey.ParseStatus),
		"delivery_status": string(survey.DeliveryStatus),
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Action: ActionNone}, nil
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{}, fmt.Errorf("unexpected policy result: %v", results[0].Expressions[0].Value)
	}

	d := Decision{Action: ActionNone}
	if action, ok := obj["action"].(string); ok {
		d.Action = Action(action)
	}
	if share, ok := obj["share_link"].(bool); ok {
		d.ShareLink = share
	}
	return d, nil
}

// DefaultPolicy lets a survey be started once it parsed successfully, stopped
// while launched, and shared only while launched.
const DefaultPolicy = `
package delivery_policy

import rego.v1

default launched := false

launched if input.delivery_status == "launched"

default action := "none"

action = "stop" if launched

action = "start" if {
	not launched
	input.parse_status == "success"
}

decision := {
	"action": action,
	"share_link": launched,
}
`
