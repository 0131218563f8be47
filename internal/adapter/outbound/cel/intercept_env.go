package cel

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"

	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
)

// NewInterceptEnvironment creates a CEL environment exposing the intercept
// payload to custom policy rules. It includes:
//   - Payload variables: tool_name, command, prompt, plan, arguments, session_id,
//     point, conversation_context, working_directory
//   - Edit variables: edit_paths, edit_contents
//   - Custom functions: glob, has_marker, path_under, arg_contains
func NewInterceptEnvironment() (*cel.Env, error) {
	return cel.NewEnv(
		// Standard extensions
		ext.Strings(),
		ext.Sets(),

		// === Payload variables ===
		cel.Variable("tool_name", cel.StringType),
		cel.Variable("command", cel.StringType),
		cel.Variable("prompt", cel.StringType),
		cel.Variable("plan", cel.StringType),
		cel.Variable("arguments", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("session_id", cel.StringType),
		cel.Variable("point", cel.StringType),
		cel.Variable("conversation_context", cel.StringType),
		cel.Variable("working_directory", cel.StringType),

		// === Edit variables ===
		cel.Variable("edit_paths", cel.ListType(cel.StringType)),
		cel.Variable("edit_contents", cel.ListType(cel.StringType)),

		// === Custom functions ===

		// glob: glob pattern matching for tool names and paths.
		// Usage: glob("mcp_atlas-gate-mcp_*", tool_name)
		cel.Function("glob",
			cel.Overload("glob_string_string",
				[]*cel.Type{cel.StringType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(func(pattern, name ref.Val) ref.Val {
					p := pattern.Value().(string)
					n := name.Value().(string)
					matched, _ := filepath.Match(p, n)
					return types.Bool(matched)
				}),
			),
		),

		// has_marker: checks whether a conversation-context marker is present.
		// Usage: has_marker(conversation_context, "ATLAS_SESSION_OK")
		cel.Function("has_marker",
			cel.Overload("has_marker_string_string",
				[]*cel.Type{cel.StringType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(func(contextVal, markerVal ref.Val) ref.Val {
					context := contextVal.Value().(string)
					marker := markerVal.Value().(string)
					return types.Bool(intercept.HasMarker(context, marker))
				}),
			),
		),

		// path_under: checks whether a path lies under a prefix.
		// Usage: edit_paths.exists(p, path_under(p, "internal/"))
		cel.Function("path_under",
			cel.Overload("path_under_string_string",
				[]*cel.Type{cel.StringType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(func(pathVal, prefixVal ref.Val) ref.Val {
					path := pathVal.Value().(string)
					prefix := prefixVal.Value().(string)
					return types.Bool(strings.HasPrefix(path, prefix))
				}),
			),
		),

		// arg_contains: check if any argument value contains a substring.
		// Usage: arg_contains(arguments, "password")
		cel.Function("arg_contains",
			cel.Overload("arg_contains_map_string",
				[]*cel.Type{cel.MapType(cel.StringType, cel.DynType), cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(func(mapVal, substrVal ref.Val) ref.Val {
					substr := substrVal.Value().(string)
					goVal := mapVal.Value()
					if goMap, ok := goVal.(map[string]any); ok {
						for _, v := range goMap {
							if s, ok := v.(string); ok {
								if strings.Contains(s, substr) {
									return types.Bool(true)
								}
							}
						}
					}
					if refMap, ok := goVal.(map[ref.Val]ref.Val); ok {
						for _, v := range refMap {
							if s, ok := v.Value().(string); ok {
								if strings.Contains(s, substr) {
									return types.Bool(true)
								}
							}
						}
					}
					return types.Bool(false)
				}),
			),
		),
	)
}

// decodeArguments converts the payload's raw JSON arguments into the map
// shape CEL expects. Non-object arguments (or malformed JSON) degrade to an
// empty map rather than failing the rule.
func decodeArguments(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

// BuildActivation creates a CEL activation map from an intercept payload,
// populating every payload and edit variable.
func BuildActivation(payload *intercept.Payload) map[string]any {
	edits := payload.AllEdits()
	paths := make([]string, 0, len(edits))
	contents := make([]string, 0, len(edits))
	for _, e := range edits {
		paths = append(paths, e.Path)
		contents = append(contents, e.NewString)
	}

	return map[string]any{
		"tool_name":            payload.ToolInfo.ToolName,
		"command":              payload.ToolInfo.Command,
		"prompt":               payload.ToolInfo.Prompt,
		"plan":                 payload.ToolInfo.Plan,
		"arguments":            decodeArguments(payload.ToolInfo.Arguments),
		"session_id":           payload.SessionID,
		"point":                string(payload.Point),
		"conversation_context": payload.ConversationContext,
		"working_directory":    payload.WorkingDirectory,

		"edit_paths":    paths,
		"edit_contents": contents,
	}
}
