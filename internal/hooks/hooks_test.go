package hooks

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/policy"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

// TestMain guards the one hook in this package that spawns external
// processes (the verification runner) against leaked goroutines.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// depsWith builds hook dependencies around the given policy document.
func depsWith(doc *policy.Document) *hook.Deps {
	if doc == nil {
		doc = policy.Empty()
	}
	return &hook.Deps{Policy: policy.Compile(doc), Logger: silentLogger()}
}

// runHook executes one hook directly, failing the test on an unexpected
// internal error.
func runHook(t *testing.T, h hook.Hook, deps *hook.Deps, payload *intercept.Payload, st *session.State) intercept.Decision {
	t.Helper()
	if st == nil {
		st = session.New("test-session")
	}
	d, err := h.Run(context.Background(), deps, payload, st)
	if err != nil {
		t.Fatalf("%s returned an internal error: %v", h.Name(), err)
	}
	return d
}

func promptPayload(prompt string) *intercept.Payload {
	return &intercept.Payload{
		SessionID: "test-session",
		Point:     intercept.PreUserPrompt,
		ToolInfo:  intercept.ToolInfo{Prompt: prompt},
	}
}

func toolPayload(tool string, args string) *intercept.Payload {
	p := &intercept.Payload{
		SessionID: "test-session",
		Point:     intercept.PreMCPToolUse,
		ToolInfo:  intercept.ToolInfo{ToolName: tool},
	}
	if args != "" {
		p.ToolInfo.Arguments = json.RawMessage(args)
	}
	return p
}

func editPayload(point intercept.Point, edits ...intercept.Edit) *intercept.Payload {
	return &intercept.Payload{
		SessionID: "test-session",
		Point:     point,
		Edits:     edits,
	}
}

// activeSession returns a session already moved to ACTIVE.
func activeSession(t *testing.T) *session.State {
	t.Helper()
	st := session.New("test-session")
	if err := st.Transition(session.LifecycleActive); err != nil {
		t.Fatal(err)
	}
	return st
}

func wantBlock(t *testing.T, d intercept.Decision, fragment string) {
	t.Helper()
	if !d.IsBlock() {
		t.Fatalf("expected block, got %q (reason %q)", d.Status, d.Reason)
	}
	if fragment != "" && !containsAnywhere(d, fragment) {
		t.Errorf("block should mention %q, got reason=%q details=%v", fragment, d.Reason, d.Details)
	}
}

func wantAllow(t *testing.T, d intercept.Decision) {
	t.Helper()
	if d.IsBlock() {
		t.Fatalf("expected allow/annotate, got block: %q %v", d.Reason, d.Details)
	}
}

// containsAnywhere looks for fragment in the reason, details, and
// annotations of a decision.
func containsAnywhere(d intercept.Decision, fragment string) bool {
	if strings.Contains(d.Reason, fragment) {
		return true
	}
	for _, note := range d.Annotations {
		if strings.Contains(note, fragment) {
			return true
		}
	}
	encoded, err := json.Marshal(d.Details)
	return err == nil && strings.Contains(string(encoded), fragment)
}
