package cel

import (
	"encoding/json"
	"testing"

	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
)

func testPayload() *intercept.Payload {
	return &intercept.Payload{
		SessionID: "sess-1",
		Point:     intercept.PreMCPToolUse,
		ToolInfo: intercept.ToolInfo{
			ToolName:  "mcp_atlas-gate-mcp_write_file",
			Plan:      "plan content",
			Arguments: json.RawMessage(`{"path": "internal/service/a.go", "note": "contains password text"}`),
			Edits: []intercept.Edit{
				{Path: "internal/service/a.go", NewString: "package service\n"},
				{Path: "docs/readme.md", NewString: "# docs\n"},
			},
		},
		ConversationContext: "... ATLAS_SESSION_OK ...",
		WorkingDirectory:    "/work/repo",
	}
}

func evalExpr(t *testing.T, expr string, payload *intercept.Payload) bool {
	t.Helper()
	ev, err := NewEvaluator()
	if err != nil {
		t.Fatal(err)
	}
	got, err := ev.EvaluateExpression(expr, payload)
	if err != nil {
		t.Fatalf("evaluate %q: %v", expr, err)
	}
	return got
}

func TestBuildActivation_PayloadVariables(t *testing.T) {
	payload := testPayload()

	if !evalExpr(t, `tool_name == "mcp_atlas-gate-mcp_write_file"`, payload) {
		t.Error("tool_name binding failed")
	}
	if !evalExpr(t, `session_id == "sess-1" && point == "pre_mcp_tool_use"`, payload) {
		t.Error("session/point binding failed")
	}
	if !evalExpr(t, `plan != ""`, payload) {
		t.Error("plan binding failed")
	}
}

func TestBuildActivation_EditVariables(t *testing.T) {
	payload := testPayload()

	if !evalExpr(t, `edit_paths.size() == 2`, payload) {
		t.Error("edit_paths size failed")
	}
	if !evalExpr(t, `edit_contents.exists(c, c.contains("package service"))`, payload) {
		t.Error("edit_contents binding failed")
	}
}

func TestCustomFunction_Glob(t *testing.T) {
	payload := testPayload()

	if !evalExpr(t, `glob("mcp_atlas-gate-mcp_*", tool_name)`, payload) {
		t.Error("glob should match the gateway prefix")
	}
	if evalExpr(t, `glob("mcp_other_*", tool_name)`, payload) {
		t.Error("glob should not match a different prefix")
	}
}

func TestCustomFunction_HasMarker(t *testing.T) {
	payload := testPayload()

	if !evalExpr(t, `has_marker(conversation_context, "ATLAS_SESSION_OK")`, payload) {
		t.Error("expected ATLAS_SESSION_OK marker")
	}
	if evalExpr(t, `has_marker(conversation_context, "ATLAS_PROMPT_UNLOCKED")`, payload) {
		t.Error("ATLAS_PROMPT_UNLOCKED should be absent")
	}
}

func TestCustomFunction_PathUnder(t *testing.T) {
	payload := testPayload()

	if !evalExpr(t, `edit_paths.exists(p, path_under(p, "internal/"))`, payload) {
		t.Error("expected an edit under internal/")
	}
	if evalExpr(t, `edit_paths.all(p, path_under(p, "internal/"))`, payload) {
		t.Error("docs edit should not be under internal/")
	}
}

func TestCustomFunction_ArgContains(t *testing.T) {
	payload := testPayload()

	if !evalExpr(t, `arg_contains(arguments, "password")`, payload) {
		t.Error("expected password substring in arguments")
	}
	if evalExpr(t, `arg_contains(arguments, "nonexistent")`, payload) {
		t.Error("unexpected substring match")
	}
}

func TestDecodeArguments_Malformed(t *testing.T) {
	if m := decodeArguments(json.RawMessage(`[1,2,3]`)); len(m) != 0 {
		t.Errorf("non-object arguments should decode to empty map, got %v", m)
	}
	if m := decodeArguments(nil); m == nil {
		t.Error("nil arguments should decode to a non-nil empty map")
	}
}
