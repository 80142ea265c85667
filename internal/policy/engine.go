// Package policy evaluates the admission rules applied to session requests.
package policy

import (
	"context"
	"fmt"
	"sort"

	"github.com/open-policy-agent/opa/rego"
)

// Violation is one rule the input failed.
type Violation struct {
	Field  string
	Reason string
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content. The
// module must define data.session_policy.violations as a set of
// {"field", "reason"} objects.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.session_policy.violations"),
		rego.Module("session_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// NewDefaultEngine prepares DefaultPolicy.
func NewDefaultEngine(ctx context.Context) (*Engine, error) {
	return NewEngine(ctx, DefaultPolicy)
}

// Evaluate returns the violations for input, sorted by field. Input is a map
// with an "op" key (create_session, append_message, update_session) plus the
// request fields and a "limits" object.
func (e *Engine) Evaluate(ctx context.Context, input map[string]interface{}) ([]Violation, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return nil, nil
	}

	set, ok := results[0].Expressions[0].Value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
	}

	violations := make([]Violation, 0, len(set))
	for _, item := range set {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		field, _ := obj["field"].(string)
		reason, _ := obj["reason"].(string)
		violations = append(violations, Violation{Field: field, Reason: reason})
	}
	sort.Slice(violations, func(i, j int) bool {
		if violations[i].Field != violations[j].Field {
			return violations[i].Field < violations[j].Field
		}
		return violations[i].Reason < violations[j].Reason
	})
	return violations, nil
}

// DefaultPolicy is the admission policy for session requests.
const DefaultPolicy = `
package session_policy

roles := {"user", "assistant"}

blank(s) {
	trim_space(s) == ""
}

violations[{"field": "threadId", "reason": "is required"}] {
	input.op == "create_session"
	blank(object.get(input, "threadId", ""))
}

violations[{"field": "role", "reason": "is required"}] {
	input.op == "append_message"
	blank(object.get(input, "role", ""))
}

violations[{"field": "role", "reason": "must be user or assistant"}] {
	input.op == "append_message"
	role := object.get(input, "role", "")
	not blank(role)
	not roles[role]
}

violations[{"field": "content", "reason": "is required"}] {
	input.op == "append_message"
	blank(object.get(input, "content", ""))
}

violations[{"field": "content", "reason": "exceeds maximum length"}] {
	input.op == "append_message"
	input.limits.max_content_bytes > 0
	object.get(input, "content_bytes", 0) > input.limits.max_content_bytes
}

violations[{"field": "title", "reason": "must not be blank"}] {
	input.op == "update_session"
	input.title != null
	blank(input.title)
}
`
