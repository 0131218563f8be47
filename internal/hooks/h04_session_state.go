package hooks

import (
	"context"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

// activeToolWhitelist is the fixed set of tool names permitted once a
// session is ACTIVE.
var activeToolWhitelist = map[string]bool{
	"begin_session": true, "end_session": true, "read_file": true,
	"write_file": true, "list_files": true, "search_code": true,
	"run_command": true, "get_plan": true,
}

// SessionStateMachine enforces the monotonic INIT -> ACTIVE -> CLOSED
// lifecycle. In INIT only begin_session is permitted (and transitions the
// session to ACTIVE); in ACTIVE only whitelisted tools are permitted, with
// end_session transitioning to CLOSED; in CLOSED every tool is blocked.
type SessionStateMachine struct{}

func (SessionStateMachine) Name() string           { return "pre_session_state_enforcement" }
func (SessionStateMachine) Posture() hook.Posture  { return hook.Mandatory }
func (SessionStateMachine) Point() intercept.Point { return intercept.PreMCPToolUse }

func (SessionStateMachine) Run(ctx context.Context, deps *hook.Deps, payload *intercept.Payload, st *session.State) (intercept.Decision, error) {
	// Gateway-prefixed and bare tool names are equivalent for lifecycle
	// purposes; the allowlist hook separately enforces which form is
	// acceptable.
	tool := bareName(payload.ToolInfo.ToolName)

	switch st.Lifecycle {
	case session.LifecycleInit:
		if tool != "begin_session" {
			return intercept.Block("session not initialized: only begin_session is permitted", map[string]any{"tool": tool}), nil
		}
		if err := st.Transition(session.LifecycleActive); err != nil {
			return intercept.Decision{}, err
		}
		return intercept.Annotate("session started", intercept.MarkerSessionOK), nil

	case session.LifecycleActive:
		if tool == "end_session" {
			if err := st.Transition(session.LifecycleClosed); err != nil {
				return intercept.Decision{}, err
			}
			return intercept.Allow(), nil
		}
		if !activeToolWhitelist[tool] {
			return intercept.Block("tool not permitted in ACTIVE session", map[string]any{"tool": tool}), nil
		}
		return intercept.Allow(), nil

	case session.LifecycleClosed:
		return intercept.Block("session is CLOSED: no further tool use is permitted", map[string]any{"tool": tool}), nil

	default:
		return intercept.Block("session lifecycle is invalid", map[string]any{"lifecycle": string(st.Lifecycle)}), nil
	}
}

var _ hook.Hook = SessionStateMachine{}
