package hooks

import (
	"context"
	"strings"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

// gatekeeperOwnPaths are the gateway's own policy/hook installation roots,
// writable only through the MCP write tool.
var gatekeeperOwnPaths = []string{
	"/etc/windsurf/policy/", "windsurf/policy/", ".windsurf/hooks/", "windsurf-hooks/",
}

// SelfProtection permits a write targeting the gateway's own policy or
// hook installation directory only when it has gone through the MCP
// write tool (evidenced by the ATLAS_PROMPT_UNLOCKED marker the prompt
// gate emits),
// preventing the agent from editing its own enforcement surface directly.
type SelfProtection struct{}

func (SelfProtection) Name() string           { return "pre_filesystem_write_enforcement_protection" }
func (SelfProtection) Posture() hook.Posture  { return hook.Mandatory }
func (SelfProtection) Point() intercept.Point { return intercept.PreFilesystemWrite }

func (SelfProtection) Run(ctx context.Context, deps *hook.Deps, payload *intercept.Payload, st *session.State) (intercept.Decision, error) {
	for _, e := range payload.AllEdits() {
		if !targetsOwnPath(e.Path) {
			continue
		}
		if !intercept.HasMarker(payload.ConversationContext, intercept.MarkerPromptUnlocked) {
			return intercept.Block("writes to gatekeeper's own policy/hook paths must go through the MCP write tool", map[string]any{
				"path": e.Path,
			}), nil
		}
	}
	return intercept.Allow(), nil
}

func targetsOwnPath(path string) bool {
	lower := strings.ToLower(path)
	for _, p := range gatekeeperOwnPaths {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

var _ hook.Hook = SelfProtection{}
