package hooks

import (
	"context"
	"fmt"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

// recognizedRefusalReasons is the closed set of reasons a refusal record may
// carry.
var recognizedRefusalReasons = map[string]bool{
	"policy_violation":    true,
	"scope_violation":     true,
	"safety_check":        true,
	"missing_requirement": true,
	"permission_denied":   true,
	"ambiguous_intent":    true,
	"resource_limit":      true,
	"configuration_error": true,
}

// minRefusalMessageLen is the shortest message that still tells the user
// something actionable.
const minRefusalMessageLen = 10

// RefusalAudit validates that a refusal record carries a recognized
// reason, a non-trivial message, at least one detail, at least one recovery
// step, and an exit code in {1,2}. Violations are reported as warnings; a
// malformed refusal never blocks; the refusal already happened, the audit
// only grades its quality.
type RefusalAudit struct{}

func (RefusalAudit) Name() string           { return "post_refusal_audit" }
func (RefusalAudit) Posture() hook.Posture  { return hook.Advisory }
func (RefusalAudit) Point() intercept.Point { return intercept.PostRefusal }

func (RefusalAudit) Run(ctx context.Context, deps *hook.Deps, payload *intercept.Payload, st *session.State) (intercept.Decision, error) {
	info := payload.RefusalInfo
	if info == nil {
		return intercept.Annotate("refusal audit", "no refusal record present"), nil
	}

	var issues []string
	if !recognizedRefusalReasons[info.Reason] {
		issues = append(issues, fmt.Sprintf("unrecognized refusal reason %q", info.Reason))
	}
	if len(info.Message) < minRefusalMessageLen {
		issues = append(issues, fmt.Sprintf("refusal message too short (%d chars, need %d)", len(info.Message), minRefusalMessageLen))
	}
	if len(info.Details) == 0 {
		issues = append(issues, "refusal record has no details")
	}
	if len(info.RecoverySteps) == 0 {
		issues = append(issues, "refusal record has no recovery steps")
	}
	if info.ExitCode != 1 && info.ExitCode != 2 {
		issues = append(issues, fmt.Sprintf("refusal exit code %d is not in {1,2}", info.ExitCode))
	}

	st.AppendAudit("refusal_audited", map[string]any{
		"reason": info.Reason,
		"issues": issues,
	})

	if len(issues) == 0 {
		return intercept.Allow(), nil
	}
	return intercept.Annotate("refusal record has quality issues", issues...), nil
}

var _ hook.Hook = RefusalAudit{}
