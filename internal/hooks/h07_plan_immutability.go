package hooks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

// planActionArgs is the subset of tool_info.arguments this hook reads: the
// requested plan action (init binds the hash, verify checks it) and the
// plan content itself (when not carried in tool_info.plan directly).
type planActionArgs struct {
	Action string `json:"action"`
	Plan   string `json:"plan"`
}

// computePlanHash derives a content-hash fingerprint of the plan, used
// purely to detect the plan changing underneath an agent mid-session, NOT a
// cryptographic validation boundary, which is delegated to the external MCP
// server
func computePlanHash(planContent string) string {
	sum := sha256.Sum256([]byte(planContent))
	return hex.EncodeToString(sum[:])
}

// mutatingTools are the tool bare names that trigger plan-immutability
// verification before proceeding.
var mutatingTools = map[string]bool{"write_file": true, "run_command": true}

// PlanImmutability binds a plan-content hash to the session on its
// first init, and blocks any subsequent mutating tool call whose plan
// content hash no longer matches the bound one.
type PlanImmutability struct{}

func (PlanImmutability) Name() string           { return "pre_plan_immutability_enforcement" }
func (PlanImmutability) Posture() hook.Posture  { return hook.Mandatory }
func (PlanImmutability) Point() intercept.Point { return intercept.PreMCPToolUse }

func (PlanImmutability) Run(ctx context.Context, deps *hook.Deps, payload *intercept.Payload, st *session.State) (intercept.Decision, error) {
	bare := bareName(payload.ToolInfo.ToolName)
	if !mutatingTools[bare] {
		return intercept.Allow(), nil
	}

	var args planActionArgs
	if len(payload.ToolInfo.Arguments) > 0 {
		_ = json.Unmarshal(payload.ToolInfo.Arguments, &args)
	}
	plan := payload.ToolInfo.Plan
	if plan == "" {
		plan = args.Plan
	}
	if plan == "" {
		return intercept.Allow(), nil
	}

	current := computePlanHash(plan)

	if args.Action == "init" || st.PlanHash == "" {
		if err := st.BindPlanHash(current); err != nil {
			st.RecordPlanOverwrite(current)
		}
		return intercept.Annotate("plan hash bound", "PLAN_OK=true"), nil
	}

	if current != st.PlanHash {
		return intercept.Block("plan hash mismatch: plan changed after being bound", map[string]any{
			"expected": st.PlanHash,
			"got":      current,
		}), nil
	}
	return intercept.Allow(), nil
}

var _ hook.Hook = PlanImmutability{}
