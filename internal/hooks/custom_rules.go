package hooks

import (
	"context"
	"fmt"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

// RuleEvaluator evaluates one operator-authored rule expression against an
// intercept payload. The CEL adapter is the production implementation.
type RuleEvaluator interface {
	EvaluateExpression(expr string, payload *intercept.Payload) (bool, error)
}

// CustomRules evaluates the policy document's custom_rules against the
// intercept payload at the interception point it is registered for
// (BuildKernel registers one per mutating point). A rule evaluating to true
// blocks when the rule is marked mandatory, otherwise annotates. Rules are
// strictly additive to the fixed hooks: they run after them and can only
// tighten the gateway. A rule that fails to compile or evaluate degrades
// to a warning annotation, matching the policy store's permissive-parse
// posture; a broken operator rule must not take the whole gateway down.
type CustomRules struct {
	// At is the interception point this instance is registered for.
	At   intercept.Point
	Eval RuleEvaluator
}

func (CustomRules) Name() string             { return "custom_policy_rules" }
func (CustomRules) Posture() hook.Posture    { return hook.Mandatory }
func (h CustomRules) Point() intercept.Point { return h.At }

func (h CustomRules) Run(ctx context.Context, deps *hook.Deps, payload *intercept.Payload, st *session.State) (intercept.Decision, error) {
	rules := deps.Policy.Doc.CustomRules
	if len(rules) == 0 || h.Eval == nil {
		return intercept.Allow(), nil
	}

	decision := intercept.Allow()
	for _, rule := range rules {
		matched, err := h.Eval.EvaluateExpression(rule.Expression, payload)
		if err != nil {
			deps.Logger.Warn("custom rule failed to evaluate, skipping",
				"rule", rule.Name, "error", err)
			decision = decision.Merge(intercept.Annotate(
				"custom rule skipped",
				fmt.Sprintf("rule %q could not be evaluated: %v", rule.Name, err)))
			continue
		}
		if !matched {
			continue
		}

		reason := rule.Reason
		if reason == "" {
			reason = "custom policy rule " + rule.Name + " matched"
		}
		if rule.Mandatory {
			return intercept.Block(reason, map[string]any{
				"rule": rule.Name, "expression": rule.Expression,
			}), nil
		}
		decision = decision.Merge(intercept.Annotate(reason, "custom rule matched: "+rule.Name))
	}
	return decision, nil
}

var _ hook.Hook = CustomRules{}
