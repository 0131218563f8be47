package hooks

import (
	"testing"

	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/policy"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

func TestSessionStateMachine_BeginSessionActivates(t *testing.T) {
	st := session.New("s")
	d := runHook(t, SessionStateMachine{}, depsWith(nil), toolPayload("mcp_atlas-gate-mcp_begin_session", ""), st)

	wantAllow(t, d)
	if !containsAnywhere(d, intercept.MarkerSessionOK) {
		t.Errorf("begin_session should annotate %s: %+v", intercept.MarkerSessionOK, d)
	}
	if st.Lifecycle != session.LifecycleActive {
		t.Errorf("lifecycle: %s", st.Lifecycle)
	}
}

func TestSessionStateMachine_ToolBeforeBeginBlocks(t *testing.T) {
	d := runHook(t, SessionStateMachine{}, depsWith(nil), toolPayload("mcp_atlas-gate-mcp_read_file", ""), session.New("s"))
	wantBlock(t, d, "session not initialized")
}

func TestSessionStateMachine_EndSessionCloses(t *testing.T) {
	st := activeSession(t)
	d := runHook(t, SessionStateMachine{}, depsWith(nil), toolPayload("end_session", ""), st)

	wantAllow(t, d)
	if st.Lifecycle != session.LifecycleClosed {
		t.Errorf("lifecycle: %s", st.Lifecycle)
	}
}

func TestSessionStateMachine_ClosedBlocksEverything(t *testing.T) {
	st := activeSession(t)
	if err := st.Transition(session.LifecycleClosed); err != nil {
		t.Fatal(err)
	}
	for _, tool := range []string{"begin_session", "read_file", "end_session"} {
		d := runHook(t, SessionStateMachine{}, depsWith(nil), toolPayload(tool, ""), st)
		wantBlock(t, d, "CLOSED")
	}
}

func TestSessionStateMachine_UnknownToolInActiveBlocks(t *testing.T) {
	d := runHook(t, SessionStateMachine{}, depsWith(nil), toolPayload("delete_everything", ""), activeSession(t))
	wantBlock(t, d, "not permitted")
}

func TestMCPAllowlist_UnrecognizedToolNameBlocks(t *testing.T) {
	d := runHook(t, MCPAllowlist{}, depsWith(nil), toolPayload("some_random_tool", ""), activeSession(t))
	wantBlock(t, d, "not recognized")
}

func TestMCPAllowlist_ToolAbsentFromAllowlistBlocks(t *testing.T) {
	doc := &policy.Document{MCPToolAllowlist: []policy.AllowlistEntry{
		{Name: "mcp_atlas-gate-mcp_begin_session"},
	}}
	d := runHook(t, MCPAllowlist{}, depsWith(doc), toolPayload("mcp_atlas-gate-mcp_write_file", ""), activeSession(t))
	wantBlock(t, d, "not in allowlist")
}

func TestMCPAllowlist_EmptyAllowlistSkipsListCheck(t *testing.T) {
	payload := toolPayload("mcp_atlas-gate-mcp_read_file", "")
	d := runHook(t, MCPAllowlist{}, depsWith(nil), payload, activeSession(t))
	wantAllow(t, d)
}

func TestMCPAllowlist_WriteFilePreconditions(t *testing.T) {
	deps := depsWith(nil)
	st := activeSession(t)

	// Missing the prompt-unlocked marker.
	payload := toolPayload("mcp_atlas-gate-mcp_write_file", "")
	payload.ToolInfo.Plan = "plan body"
	d := runHook(t, MCPAllowlist{}, deps, payload, st)
	wantBlock(t, d, intercept.MarkerPromptUnlocked)

	// Marker present but no plan field.
	payload = toolPayload("mcp_atlas-gate-mcp_write_file", "")
	payload.ConversationContext = intercept.MarkerPromptUnlocked
	d = runHook(t, MCPAllowlist{}, deps, payload, st)
	wantBlock(t, d, "plan")

	// Both present: passes presence checks (cryptography is delegated).
	payload = toolPayload("mcp_atlas-gate-mcp_write_file", "")
	payload.ConversationContext = intercept.MarkerPromptUnlocked
	payload.ToolInfo.Plan = "plan body"
	d = runHook(t, MCPAllowlist{}, deps, payload, st)
	wantAllow(t, d)
}

func TestMCPAllowlist_RequiredFieldsSchema(t *testing.T) {
	doc := &policy.Document{MCPToolAllowlist: []policy.AllowlistEntry{
		{Name: "mcp_atlas-gate-mcp_search_code", RequiredFields: []string{"query"}},
	}}
	deps := depsWith(doc)

	d := runHook(t, MCPAllowlist{}, deps, toolPayload("mcp_atlas-gate-mcp_search_code", `{}`), activeSession(t))
	wantBlock(t, d, "query")

	d = runHook(t, MCPAllowlist{}, deps, toolPayload("mcp_atlas-gate-mcp_search_code", `{"query": "TODO"}`), activeSession(t))
	wantAllow(t, d)
}

func TestReasoningDetector_BlocksHedgingArguments(t *testing.T) {
	d := runHook(t, ReasoningDetector{}, depsWith(nil), toolPayload("write_file", `{"why": "because this is safer"}`), nil)
	wantBlock(t, d, "reasoning_in_executor")
	if !containsAnywhere(d, "because") {
		t.Errorf("evidence should name the matched marker: %+v", d)
	}
}

func TestReasoningDetector_ScansNestedArguments(t *testing.T) {
	d := runHook(t, ReasoningDetector{}, depsWith(nil), toolPayload("write_file", `{"outer": {"inner": ["we should try this"]}}`), nil)
	wantBlock(t, d, "reasoning_in_executor")
}

func TestReasoningDetector_CleanArgumentsAllow(t *testing.T) {
	d := runHook(t, ReasoningDetector{}, depsWith(nil), toolPayload("write_file", `{"path": "a.go", "content": "package a"}`), nil)
	wantAllow(t, d)
}

func TestPlanImmutability_InitBindsHash(t *testing.T) {
	st := activeSession(t)
	payload := toolPayload("write_file", `{"action": "init"}`)
	payload.ToolInfo.Plan = `{"steps":[1]}`

	d := runHook(t, PlanImmutability{}, depsWith(nil), payload, st)
	wantAllow(t, d)
	if st.PlanHash == "" {
		t.Fatal("plan hash not bound")
	}
	if !containsAnywhere(d, intercept.MarkerPlanOK) {
		t.Errorf("init should annotate %s: %+v", intercept.MarkerPlanOK, d)
	}
}

func TestPlanImmutability_VerifyMismatchBlocks(t *testing.T) {
	st := activeSession(t)
	deps := depsWith(nil)

	initPayload := toolPayload("write_file", `{"action": "init"}`)
	initPayload.ToolInfo.Plan = `{"steps":[1]}`
	runHook(t, PlanImmutability{}, deps, initPayload, st)
	bound := st.PlanHash

	verifyPayload := toolPayload("write_file", `{"action": "verify"}`)
	verifyPayload.ToolInfo.Plan = `{"steps":[2]}`
	d := runHook(t, PlanImmutability{}, deps, verifyPayload, st)

	wantBlock(t, d, "plan")
	if !containsAnywhere(d, bound) {
		t.Errorf("mismatch should report the expected hash: %+v", d.Details)
	}
	if !containsAnywhere(d, computePlanHash(`{"steps":[2]}`)) {
		t.Errorf("mismatch should report the got hash: %+v", d.Details)
	}
}

func TestPlanImmutability_VerifyIsIdempotent(t *testing.T) {
	st := activeSession(t)
	deps := depsWith(nil)

	initPayload := toolPayload("write_file", `{"action": "init"}`)
	initPayload.ToolInfo.Plan = `{"steps":[1]}`
	runHook(t, PlanImmutability{}, deps, initPayload, st)

	verifyPayload := toolPayload("write_file", `{"action": "verify"}`)
	verifyPayload.ToolInfo.Plan = `{"steps":[1]}`
	first := runHook(t, PlanImmutability{}, deps, verifyPayload, st)
	second := runHook(t, PlanImmutability{}, deps, verifyPayload, st)

	if first.Status != second.Status {
		t.Errorf("verify not idempotent: %q vs %q", first.Status, second.Status)
	}
	wantAllow(t, first)
}

func TestPlanImmutability_NonMutatingToolIgnored(t *testing.T) {
	payload := toolPayload("read_file", "")
	payload.ToolInfo.Plan = "whatever"
	d := runHook(t, PlanImmutability{}, depsWith(nil), payload, activeSession(t))
	wantAllow(t, d)
}
