package hooks

import (
	"context"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/policy"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

// ShellKillSwitch blocks every shell command unconditionally in the
// execution_only and locked profiles; in the standard profile it blocks
// only commands matching policy.block_commands_regex.
type ShellKillSwitch struct{}

func (ShellKillSwitch) Name() string           { return "pre_run_command_kill_switch" }
func (ShellKillSwitch) Posture() hook.Posture  { return hook.Mandatory }
func (ShellKillSwitch) Point() intercept.Point { return intercept.PreRunCommand }

func (ShellKillSwitch) Run(ctx context.Context, deps *hook.Deps, payload *intercept.Payload, st *session.State) (intercept.Decision, error) {
	profile := deps.Policy.Doc.ExecutionProfile

	if profile == policy.ProfileExecutionOnly || profile == policy.ProfileLocked {
		return intercept.Block("Direct command execution is disabled.", map[string]any{
			"profile": string(profile),
			"command": payload.ToolInfo.Command,
		}), nil
	}

	cmd := payload.ToolInfo.Command
	if matched, src := deps.Policy.MatchesBlockedCommand(cmd); matched {
		return intercept.Block("command matches block_commands_regex", map[string]any{"pattern": src}), nil
	}
	return intercept.Allow(), nil
}

var _ hook.Hook = ShellKillSwitch{}
