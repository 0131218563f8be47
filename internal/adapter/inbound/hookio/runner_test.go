package hookio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
)

// scriptedDispatcher returns a fixed result (or error) and records the
// payload it was handed.
type scriptedDispatcher struct {
	result  *hook.Result
	err     error
	payload *intercept.Payload
}

func (d *scriptedDispatcher) Dispatch(_ context.Context, payload *intercept.Payload) (*hook.Result, error) {
	d.payload = payload
	return d.result, d.err
}

func newRunner(dispatcher Dispatcher, stdin string) (*Runner, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return &Runner{
		Dispatcher: dispatcher,
		Stdin:      strings.NewReader(stdin),
		Stdout:     stdout,
		Stderr:     stderr,
	}, stdout, stderr
}

func TestRun_BlockWritesBlockedLineAndExits2(t *testing.T) {
	d := &scriptedDispatcher{result: &hook.Result{
		RequestID: "req-1",
		Decision: intercept.Decision{
			Status:  intercept.StatusBlock,
			Reason:  "Direct command execution is disabled.",
			Details: map[string]any{"command": "ls", "profile": "execution_only"},
		},
	}}
	r, stdout, stderr := newRunner(d, `{"tool_info":{"tool_name":"run_command","command":"ls"}}`)

	code := r.Run(context.Background(), intercept.PreRunCommand)
	if code != intercept.ExitBlock {
		t.Fatalf("exit code: got %d, want 2", code)
	}

	lines := strings.Split(strings.TrimSpace(stderr.String()), "\n")
	if !strings.HasPrefix(lines[0], "BLOCKED: Direct command execution is disabled.") {
		t.Errorf("first stderr line: %q", lines[0])
	}
	if !strings.Contains(stderr.String(), "ls") {
		t.Error("stderr should mention the blocked command")
	}
	for _, line := range lines[1:] {
		if !strings.HasPrefix(line, "  - ") {
			t.Errorf("detail line not indented: %q", line)
		}
	}
	if stdout.Len() != 0 {
		t.Errorf("block should not write stdout, got %q", stdout.String())
	}
}

func TestRun_AllowIsSilentAndExits0(t *testing.T) {
	d := &scriptedDispatcher{result: &hook.Result{Decision: intercept.Allow()}}
	r, stdout, stderr := newRunner(d, `{"tool_info":{"tool_name":"read_file"}}`)

	code := r.Run(context.Background(), intercept.PreMCPToolUse)
	if code != intercept.ExitAllow {
		t.Fatalf("exit code: got %d, want 0", code)
	}
	if stdout.Len() != 0 || stderr.Len() != 0 {
		t.Errorf("plain allow should write nothing, got out=%q err=%q", stdout.String(), stderr.String())
	}
}

func TestRun_AnnotateEmitsSingleJSONLineAndExits0(t *testing.T) {
	d := &scriptedDispatcher{result: &hook.Result{
		RequestID: "req-2",
		Decision:  intercept.Annotate("session started", "ATLAS_SESSION_OK"),
	}}
	r, stdout, stderr := newRunner(d, `{"tool_info":{"tool_name":"begin_session"}}`)

	code := r.Run(context.Background(), intercept.PreMCPToolUse)
	if code != intercept.ExitAllow {
		t.Fatalf("exit code: got %d, want 0", code)
	}

	out := strings.TrimSpace(stdout.String())
	if strings.Contains(out, "\n") {
		t.Errorf("annotation must be a single line, got %q", out)
	}
	var parsed annotationOutput
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		t.Fatalf("annotation is not valid JSON: %v", err)
	}
	if parsed.Status != intercept.StatusAnnotate || len(parsed.Annotations) != 1 {
		t.Errorf("unexpected annotation output: %+v", parsed)
	}
	if parsed.Annotations[0] != "ATLAS_SESSION_OK" {
		t.Errorf("marker missing: %+v", parsed.Annotations)
	}

	// The advisory signal is mirrored to stderr for the user.
	if !strings.HasPrefix(stderr.String(), "WARNING: session started") {
		t.Errorf("stderr should carry the warning: %q", stderr.String())
	}
	if !strings.Contains(stderr.String(), "  - ATLAS_SESSION_OK") {
		t.Errorf("stderr should list each annotation: %q", stderr.String())
	}
}

func TestRun_AdvisoryIssuesListedOnStderr(t *testing.T) {
	issues := []string{
		"refusal message too short (5 chars, need 10)",
		"refusal record has no details",
		"refusal record has no recovery steps",
		"refusal exit code 0 is not in {1,2}",
	}
	d := &scriptedDispatcher{result: &hook.Result{
		RequestID: "req-3",
		Decision:  intercept.Annotate("refusal record has quality issues", issues...),
	}}
	r, _, stderr := newRunner(d, `{"refusal_info":{"reason":"policy_violation"}}`)

	code := r.Run(context.Background(), intercept.PostRefusal)
	if code != intercept.ExitAllow {
		t.Fatalf("exit code: got %d, want 0", code)
	}
	for _, issue := range issues {
		if !strings.Contains(stderr.String(), "  - "+issue) {
			t.Errorf("stderr missing issue %q:\n%s", issue, stderr.String())
		}
	}
}

func TestRun_MalformedPayloadBlocksAtMandatoryPoint(t *testing.T) {
	d := &scriptedDispatcher{result: &hook.Result{Decision: intercept.Allow()}}
	r, _, stderr := newRunner(d, `{not json`)

	code := r.Run(context.Background(), intercept.PreWriteCode)
	if code != intercept.ExitBlock {
		t.Fatalf("exit code: got %d, want 2", code)
	}
	if !strings.HasPrefix(stderr.String(), "BLOCKED: payload_malformed") {
		t.Errorf("stderr: %q", stderr.String())
	}
	if d.payload != nil {
		t.Error("dispatcher must not run on a malformed payload")
	}
}

func TestRun_MalformedPayloadAllowsAtAdvisoryOnlyPoint(t *testing.T) {
	d := &scriptedDispatcher{result: &hook.Result{Decision: intercept.Allow()}}
	r, stdout, _ := newRunner(d, `{not json`)

	code := r.Run(context.Background(), intercept.PostSession)
	if code != intercept.ExitAllow {
		t.Fatalf("exit code: got %d, want 0", code)
	}
	if stdout.Len() != 0 {
		t.Errorf("neutral allow should be silent, got %q", stdout.String())
	}
}

func TestRun_DispatchErrorExits1(t *testing.T) {
	d := &scriptedDispatcher{err: errors.New("state store unavailable")}
	r, _, stderr := newRunner(d, `{"tool_info":{}}`)

	code := r.Run(context.Background(), intercept.PreMCPToolUse)
	if code != intercept.ExitInternalError {
		t.Fatalf("exit code: got %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "internal error") {
		t.Errorf("stderr: %q", stderr.String())
	}
}

func TestRun_SubcommandPointOverridesPayload(t *testing.T) {
	d := &scriptedDispatcher{result: &hook.Result{Decision: intercept.Allow()}}
	r, _, _ := newRunner(d, `{"interception_point":"post_session","tool_info":{}}`)

	r.Run(context.Background(), intercept.PreRunCommand)
	if d.payload.Point != intercept.PreRunCommand {
		t.Errorf("point: got %q, want the invoked subcommand's point", d.payload.Point)
	}
}
