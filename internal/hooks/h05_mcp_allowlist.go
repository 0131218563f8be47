package hooks

import (
	"context"
	"strings"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

// gatewayMCPPrefix is the prefix ATLAS-GATE-namespaced tool names carry.
const gatewayMCPPrefix = "mcp_atlas-gate-mcp_"

// bareToolNames are the short names recognized without the gateway prefix.
var bareToolNames = activeToolWhitelist

// MCPAllowlist rejects tools that are neither gateway-prefixed nor a
// known bare name, rejects tools absent from a non-empty policy allowlist,
// and enforces the begin_session/write_file preconditions.
type MCPAllowlist struct{}

func (MCPAllowlist) Name() string           { return "pre_mcp_tool_use_allowlist" }
func (MCPAllowlist) Posture() hook.Posture  { return hook.Mandatory }
func (MCPAllowlist) Point() intercept.Point { return intercept.PreMCPToolUse }

func bareName(tool string) string {
	if strings.HasPrefix(tool, gatewayMCPPrefix) {
		return strings.TrimPrefix(tool, gatewayMCPPrefix)
	}
	return tool
}

func (MCPAllowlist) Run(ctx context.Context, deps *hook.Deps, payload *intercept.Payload, st *session.State) (intercept.Decision, error) {
	tool := payload.ToolInfo.ToolName
	bare := bareName(tool)

	if !strings.HasPrefix(tool, gatewayMCPPrefix) && !bareToolNames[bare] {
		return intercept.Block("tool name not recognized: not gateway-prefixed or a known bare name", map[string]any{"tool": tool}), nil
	}

	doc := deps.Policy.Doc
	if len(doc.MCPToolAllowlist) > 0 {
		entry, ok := doc.AllowlistLookup(tool)
		if !ok {
			entry, ok = doc.AllowlistLookup(bare)
		}
		if !ok {
			return intercept.Block("tool not in allowlist", map[string]any{"tool": tool}), nil
		}
		if missing := missingRequiredFields(entry.RequiredFields, payload); len(missing) > 0 {
			return intercept.Block("missing required fields for "+tool, map[string]any{"missing_fields": missing}), nil
		}
	}

	if bare == "begin_session" {
		return intercept.Annotate("session begin acknowledged", intercept.MarkerSessionOK), nil
	}

	if bare == "read_file" || bare == "write_file" || bare == "list_files" || bare == "search_code" {
		if st.Lifecycle == session.LifecycleInit {
			return intercept.Block("session not initialized", map[string]any{"tool": tool}), nil
		}
	}

	if bare == "write_file" {
		if !intercept.HasMarker(payload.ConversationContext, intercept.MarkerPromptUnlocked) {
			return intercept.Block("write_file requires a prior ATLAS_PROMPT_UNLOCKED annotation", nil), nil
		}
		if payload.ToolInfo.Plan == "" {
			return intercept.Block("write_file requires a non-empty plan field", nil), nil
		}
	}

	return intercept.Allow(), nil
}

// missingRequiredFields reports which of fields are absent from the
// payload's tool_info.arguments, honoring an optional AllowlistEntry schema.
// plan is checked against its dedicated struct field, path/content against
// the presence of any edit; any other field counts as present when the raw
// arguments JSON contains it as a quoted string, without decoding the JSON.
func missingRequiredFields(fields []string, payload *intercept.Payload) []string {
	var missing []string
	for _, f := range fields {
		switch f {
		case "plan":
			if payload.ToolInfo.Plan == "" {
				missing = append(missing, f)
			}
		case "path", "content":
			if len(payload.AllEdits()) == 0 {
				missing = append(missing, f)
			}
		default:
			if len(payload.ToolInfo.Arguments) == 0 || !strings.Contains(string(payload.ToolInfo.Arguments), `"`+f+`"`) {
				missing = append(missing, f)
			}
		}
	}
	return missing
}

var _ hook.Hook = MCPAllowlist{}
