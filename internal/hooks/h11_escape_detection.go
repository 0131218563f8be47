package hooks

import (
	"context"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/pattern"
	"github.com/atlasgate/gatekeeper/internal/domain/policy"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

// EscapeDetection scans, in the execution_only profile, every edit's new
// content for hard-coded process/network/FFI escape primitives the agent
// should never need once privileged operations are delegated to the MCP
// server.
type EscapeDetection struct{}

func (EscapeDetection) Name() string           { return "pre_write_code_escape_detection" }
func (EscapeDetection) Posture() hook.Posture  { return hook.Mandatory }
func (EscapeDetection) Point() intercept.Point { return intercept.PreWriteCode }

func (EscapeDetection) Run(ctx context.Context, deps *hook.Deps, payload *intercept.Payload, st *session.State) (intercept.Decision, error) {
	if deps.Policy.Doc.ExecutionProfile != policy.ProfileExecutionOnly {
		return intercept.Allow(), nil
	}

	for _, e := range payload.AllEdits() {
		for _, re := range pattern.EscapePrimitives {
			if m := re.FindString(e.NewString); m != "" {
				return intercept.Block("escape primitive found in execution_only edit", map[string]any{
					"path": e.Path, "match": m,
				}), nil
			}
		}
	}
	return intercept.Allow(), nil
}

var _ hook.Hook = EscapeDetection{}
