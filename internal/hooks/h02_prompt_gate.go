package hooks

import (
	"context"
	"regexp"
	"strings"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/pattern"
	"github.com/atlasgate/gatekeeper/internal/domain/policy"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

var (
	planHashRe  = regexp.MustCompile(`\b[a-f0-9]{64}\b`)
	planAliasRe = regexp.MustCompile(`\bplan=(\S+)|\bplan:\s*(\S+)`)
	planDocRe   = regexp.MustCompile(`/docs/plans/([\w\-]+)\.md`)
)

// extractPlanRef finds a plan reference in prompt in any of the recognized
// forms: a bare sha256 hex digest, `plan=<alias>` / `plan: <alias>`, or a
// `/docs/plans/<name>.md` path.
func extractPlanRef(prompt string) (string, bool) {
	if m := planHashRe.FindString(prompt); m != "" {
		return m, true
	}
	if m := planAliasRe.FindStringSubmatch(prompt); m != nil {
		if m[1] != "" {
			return m[1], true
		}
		return m[2], true
	}
	if m := planDocRe.FindStringSubmatch(prompt); m != nil {
		return m[1], true
	}
	return "", false
}

func expressesMutationIntent(prompt string) bool {
	for _, p := range pattern.IntentPatterns {
		if p.Category == pattern.IntentMutate && p.Regex.MatchString(prompt) {
			return true
		}
	}
	return false
}

// PromptGate enforces the audit_ok/ship_ok token gate for prompts
// expressing mutation intent, and annotates whether a plan reference was
// found. A policy document that fails to define both tokens blocks the
// mutating turn outright: absence of a signal never grants authority, and
// the gate cannot be satisfied by a token that does not exist.
type PromptGate struct{}

func (PromptGate) Name() string          { return "pre_user_prompt_gate" }
func (PromptGate) Posture() hook.Posture { return hook.Mandatory }
func (PromptGate) Point() intercept.Point { return intercept.PreUserPrompt }

func (PromptGate) Run(ctx context.Context, deps *hook.Deps, payload *intercept.Payload, st *session.State) (intercept.Decision, error) {
	prompt := payload.ToolInfo.Prompt
	doc := deps.Policy.Doc

	decision := intercept.Allow()
	if ref, ok := extractPlanRef(prompt); ok {
		decision = intercept.Annotate("plan reference detected", "ATLAS_PLAN_REQUESTED="+ref)
	} else if expressesMutationIntent(prompt) {
		decision = intercept.Annotate("mutation intent without plan reference", "ATLAS_MUTATION_NO_PLAN")
	}

	if !expressesMutationIntent(prompt) {
		return decision, nil
	}

	if !doc.HasTokens() {
		return intercept.Block("policy tokens audit_ok/ship_ok are not configured: mutation prompts cannot be gated", map[string]any{
			"missing": missingTokenNames(doc.Tokens),
		}), nil
	}

	if !strings.Contains(prompt, doc.Tokens.AuditOK) {
		return intercept.Block("audit required: include token "+doc.Tokens.AuditOK, nil), nil
	}
	if strings.Contains(strings.ToLower(prompt), "proceed") && !strings.Contains(prompt, doc.Tokens.ShipOK) {
		return intercept.Block("shipping gate required: include token "+doc.Tokens.ShipOK, nil), nil
	}

	// Tokens validated: unlock the MCP write path for this turn. The MCP
	// allowlist hook refuses write_file until this marker is in
	// conversation context.
	unlocked := intercept.Annotate("prompt gate passed", intercept.MarkerPromptUnlocked)
	return decision.Merge(unlocked), nil
}

// missingTokenNames reports which of the two gate tokens the policy
// document left undefined.
func missingTokenNames(tokens policy.Tokens) []string {
	var missing []string
	if tokens.AuditOK == "" {
		missing = append(missing, "audit_ok")
	}
	if tokens.ShipOK == "" {
		missing = append(missing, "ship_ok")
	}
	return missing
}

var _ hook.Hook = PromptGate{}
