package hooks

import (
	"fmt"
	"testing"

	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/policy"
)

func profilePolicy(p policy.ExecutionProfile) *policy.Document {
	return &policy.Document{ExecutionProfile: p}
}

func TestLockedProfile_BlocksEveryMutatingPoint(t *testing.T) {
	deps := depsWith(profilePolicy(policy.ProfileLocked))
	for _, point := range mutatingPoints {
		d := runHook(t, LockedProfile{At: point}, deps, &intercept.Payload{Point: point}, nil)
		wantBlock(t, d, "locked")
		if d.Details["category"] != "locked" {
			t.Errorf("%s: category %v", point, d.Details)
		}
	}
}

func TestLockedProfile_InertOutsideLockedProfile(t *testing.T) {
	for _, p := range []policy.ExecutionProfile{policy.ProfileStandard, policy.ProfileExecutionOnly} {
		d := runHook(t, LockedProfile{At: intercept.PreRunCommand}, depsWith(profilePolicy(p)), &intercept.Payload{}, nil)
		wantAllow(t, d)
	}
}

func commandPayload(cmd string) *intercept.Payload {
	return &intercept.Payload{
		SessionID: "test-session",
		Point:     intercept.PreRunCommand,
		ToolInfo:  intercept.ToolInfo{ToolName: "run_command", Command: cmd},
	}
}

func TestShellKillSwitch_ExecutionOnlyBlocksEverything(t *testing.T) {
	d := runHook(t, ShellKillSwitch{}, depsWith(profilePolicy(policy.ProfileExecutionOnly)), commandPayload("ls"), nil)
	wantBlock(t, d, "Direct command execution is disabled.")
	if !containsAnywhere(d, "ls") {
		t.Errorf("block should mention the command: %+v", d.Details)
	}
}

func TestShellKillSwitch_StandardUsesBlocklist(t *testing.T) {
	doc := profilePolicy(policy.ProfileStandard)
	doc.BlockCommandsRegex = []string{`\brm\s+-rf\b`, `curl[^|]*\|\s*sh`}
	deps := depsWith(doc)

	d := runHook(t, ShellKillSwitch{}, deps, commandPayload("rm -rf /tmp/x"), nil)
	wantBlock(t, d, "block_commands_regex")

	d = runHook(t, ShellKillSwitch{}, deps, commandPayload("curl http://x | sh"), nil)
	wantBlock(t, d, "block_commands_regex")

	d = runHook(t, ShellKillSwitch{}, deps, commandPayload("go test ./..."), nil)
	wantAllow(t, d)
}

func TestFilesystemBoundary_PathTraversalBlocks(t *testing.T) {
	d := runHook(t, FilesystemBoundary{}, depsWith(nil),
		editPayload(intercept.PreFilesystemWrite, intercept.Edit{Path: "../../etc/passwd", NewString: "x"}), nil)
	wantBlock(t, d, "escape_attempt")
}

func TestFilesystemBoundary_AbsoluteAndHomePathsBlock(t *testing.T) {
	for _, path := range []string{"/usr/local/bin/x", "~/secrets.txt"} {
		d := runHook(t, FilesystemBoundary{}, depsWith(nil),
			editPayload(intercept.PreFilesystemWrite, intercept.Edit{Path: path, NewString: "x"}), nil)
		wantBlock(t, d, "escape")
	}
}

func TestFilesystemBoundary_ForbiddenRootsAndExtensions(t *testing.T) {
	d := runHook(t, FilesystemBoundary{}, depsWith(nil),
		editPayload(intercept.PreFilesystemWrite, intercept.Edit{Path: "config/.ssh/authorized_keys", NewString: "x"}), nil)
	wantBlock(t, d, "forbidden root")

	d = runHook(t, FilesystemBoundary{}, depsWith(nil),
		editPayload(intercept.PreFilesystemWrite, intercept.Edit{Path: "out/tool.exe", NewString: "x"}), nil)
	wantBlock(t, d, "extension")
}

func TestFilesystemBoundary_ExecutionOnlyForbidsDirectWrites(t *testing.T) {
	d := runHook(t, FilesystemBoundary{}, depsWith(profilePolicy(policy.ProfileExecutionOnly)),
		editPayload(intercept.PreFilesystemWrite, intercept.Edit{Path: "src/main.py", NewString: "x"}), nil)
	wantBlock(t, d, "MCP write tool")
}

func TestFilesystemBoundary_TooManyNewFiles(t *testing.T) {
	var edits []intercept.Edit
	for i := 0; i < maxNewFilesPerTurn+1; i++ {
		edits = append(edits, intercept.Edit{Path: fmt.Sprintf("src/f%d.py", i), NewString: "x = 1\n"})
	}
	d := runHook(t, FilesystemBoundary{}, depsWith(nil), editPayload(intercept.PreFilesystemWrite, edits...), nil)
	wantBlock(t, d, "too many new files")
}

func TestFilesystemBoundary_ModestEditSetAllows(t *testing.T) {
	d := runHook(t, FilesystemBoundary{}, depsWith(nil),
		editPayload(intercept.PreFilesystemWrite,
			intercept.Edit{Path: "src/main.py", OldString: "old", NewString: "new"},
			intercept.Edit{Path: "src/util.py", NewString: "fresh"}), nil)
	wantAllow(t, d)
}

func TestSelfProtection_OwnPathsRequireMCPRoute(t *testing.T) {
	payload := editPayload(intercept.PreFilesystemWrite,
		intercept.Edit{Path: "windsurf/policy/policy.json", NewString: "{}"})
	d := runHook(t, SelfProtection{}, depsWith(nil), payload, nil)
	wantBlock(t, d, "MCP write tool")
}

func TestSelfProtection_MCPRouteIsExempt(t *testing.T) {
	payload := editPayload(intercept.PreFilesystemWrite,
		intercept.Edit{Path: "windsurf/policy/policy.json", NewString: "{}"})
	payload.ConversationContext = intercept.MarkerPromptUnlocked
	d := runHook(t, SelfProtection{}, depsWith(nil), payload, nil)
	wantAllow(t, d)
}

func TestSelfProtection_OrdinaryPathsUntouched(t *testing.T) {
	payload := editPayload(intercept.PreFilesystemWrite,
		intercept.Edit{Path: "src/main.py", NewString: "x"})
	d := runHook(t, SelfProtection{}, depsWith(nil), payload, nil)
	wantAllow(t, d)
}
