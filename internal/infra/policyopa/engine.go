// Package policyopa evaluates the domain-access policy with OPA. The policy
// decides whether an authenticated participant may spend budget in a given
// domain, based on working-group membership and trust tier.
package policyopa

import (
	"context"
	"errors"
	"fmt"

	"agora/internal/domain"

	"github.com/open-policy-agent/opa/rego"
)

const defaultQuery = "data.agora.access.allow"

// defaultModule grants access when the domain is one of the participant's
// working groups, or when the participant has reached the heavy tier.
const defaultModule = `package agora.access

default allow = false

allow {
	input.domain == input.working_groups[_]
}

allow {
	tier_rank[input.trust_tier] >= 2
}

tier_rank = {"blade": 0, "light": 1, "heavy": 2, "dragon": 3}
`

type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine compiles the built-in domain-access module.
func NewEngine(ctx context.Context) (*Engine, error) {
	return prepare(ctx, rego.Module("access.rego", defaultModule))
}

// NewEngineFromPath compiles an operator-supplied policy from disk; the
// policy must define data.agora.access.allow.
func NewEngineFromPath(ctx context.Context, path string) (*Engine, error) {
	return prepare(ctx, rego.Load([]string{path}, nil))
}

func prepare(ctx context.Context, source func(*rego.Rego)) (*Engine, error) {
	r := rego.New(
		rego.Query(defaultQuery),
		rego.StrictBuiltinErrors(true),
		source,
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy: %w", err)
	}
	return &Engine{query: prepared}, nil
}

func (e *Engine) Allow(ctx context.Context, input domain.DomainAccessInput) (bool, error) {
	if e == nil {
		return false, errors.New("policy engine is nil")
	}
	groups := make([]any, 0, len(input.WorkingGroups))
	for _, g := range input.WorkingGroups {
		groups = append(groups, g)
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(map[string]any{
		"participant_id": input.ParticipantID,
		"domain":         input.Domain,
		"trust_tier":     input.TrustTier,
		"working_groups": groups,
	}))
	if err != nil {
		return false, err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, nil
	}
	allowed, ok := results[0].Expressions[0].Value.(bool)
	if !ok {
		return false, errors.New("policy result is not a boolean")
	}
	return allowed, nil
}

var _ domain.PolicyEngine = (*Engine)(nil)
