package hooks

import (
	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

// mutatingPoints are the interception points the locked profile disables
// outright and at which operator custom rules run. pre_user_prompt is
// deliberately absent: reading a prompt mutates nothing, and locking a
// user out of *asking* would make the lockout unrecoverable.
var mutatingPoints = []intercept.Point{
	intercept.PreMCPToolUse,
	intercept.PreRunCommand,
	intercept.PreFilesystemWrite,
	intercept.PreWriteCode,
	intercept.PostWrite,
}

// BuildKernel constructs the dispatch table: every enforcement hook
// registered at its interception point, in the order the table fixes.
// Registration order is dispatch order and is the authoritative strictness
// choice: the locked-profile guard always runs first at mutating points,
// and custom rules always run last so they can only tighten what the fixed
// hooks already decided.
func BuildKernel(deps *hook.Deps, sessions session.Store, ruleEval RuleEvaluator) *hook.Kernel {
	k := hook.NewKernel(deps, sessions)

	// pre_user_prompt
	k.Register(IntentClassification{})
	k.Register(PromptGate{})
	k.Register(PlanResolution{})

	// pre_mcp_tool_use
	k.Register(LockedProfile{At: intercept.PreMCPToolUse})
	k.Register(SessionStateMachine{})
	k.Register(MCPAllowlist{})
	k.Register(ReasoningDetector{})
	k.Register(PlanImmutability{})

	// pre_run_command
	k.Register(LockedProfile{At: intercept.PreRunCommand})
	k.Register(ShellKillSwitch{})

	// pre_filesystem_write
	k.Register(LockedProfile{At: intercept.PreFilesystemWrite})
	k.Register(FilesystemBoundary{})
	k.Register(SelfProtection{})

	// pre_write_code
	k.Register(LockedProfile{At: intercept.PreWriteCode})
	k.Register(EscapeDetection{})
	k.Register(CodePolicy{})
	k.Register(Completeness{})
	k.Register(ComprehensiveComments{})
	k.Register(LanguageCompliance{})

	// post_write
	k.Register(LockedProfile{At: intercept.PostWrite})
	k.Register(TestPresence{})
	k.Register(VerificationRunner{})
	k.Register(Observability{})
	k.Register(SemanticDiff{})

	// post_session
	k.Register(SessionEntropy{})

	// post_refusal
	k.Register(RefusalAudit{})

	// Operator custom rules run last at every mutating point.
	if ruleEval != nil {
		for _, p := range mutatingPoints {
			k.Register(CustomRules{At: p, Eval: ruleEval})
		}
	}

	return k
}
