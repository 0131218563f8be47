package hooks

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

// verifyScriptName is the well-known verification entrypoint a repo may
// provide.
const verifyScriptName = "scripts/verify"

// defaultVerifyTimeout bounds how long the verification script may run
// before the hook treats it as failed, when the operational config does
// not set its own bound.
const defaultVerifyTimeout = 60 * time.Second

// VerificationRunner executes the well-known verification script, when
// one exists, under a hard timeout; a non-zero exit or a timeout blocks.
// An absent script only warns: absence never grants authority, but it is
// also not itself a violation.
type VerificationRunner struct{}

func (VerificationRunner) Name() string           { return "post_write_verify" }
func (VerificationRunner) Posture() hook.Posture  { return hook.Mandatory }
func (VerificationRunner) Point() intercept.Point { return intercept.PostWrite }

func (VerificationRunner) Run(ctx context.Context, deps *hook.Deps, payload *intercept.Payload, st *session.State) (intercept.Decision, error) {
	root := payload.WorkingDirectory
	if root == "" {
		root = "."
	}
	scriptPath := root + string(os.PathSeparator) + verifyScriptName

	info, err := os.Stat(scriptPath)
	if err != nil || info.IsDir() {
		return intercept.Annotate("no verification script found, proceeding without verification"), nil
	}

	timeout := deps.VerifyTimeout
	if timeout <= 0 {
		timeout = defaultVerifyTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, scriptPath)
	cmd.Dir = root
	output, runErr := cmd.CombinedOutput()

	if runCtx.Err() == context.DeadlineExceeded {
		return intercept.Block("verification script timed out", map[string]any{"script": scriptPath, "timeout_seconds": timeout.Seconds()}), nil
	}
	if runErr != nil {
		return intercept.Block("verification script failed", map[string]any{"script": scriptPath, "output": string(output)}), nil
	}
	return intercept.Allow(), nil
}

var _ hook.Hook = VerificationRunner{}
