package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/atlasgate/gatekeeper/internal/adapter/inbound/hookio"
	auditfile "github.com/atlasgate/gatekeeper/internal/adapter/outbound/audit"
	"github.com/atlasgate/gatekeeper/internal/adapter/outbound/auditindex"
	celadapter "github.com/atlasgate/gatekeeper/internal/adapter/outbound/cel"
	"github.com/atlasgate/gatekeeper/internal/adapter/outbound/memory"
	"github.com/atlasgate/gatekeeper/internal/adapter/outbound/policystore"
	"github.com/atlasgate/gatekeeper/internal/adapter/outbound/state"
	"github.com/atlasgate/gatekeeper/internal/config"
	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/hooks"
	"github.com/atlasgate/gatekeeper/internal/observability"
	"github.com/atlasgate/gatekeeper/internal/service"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Evaluate one interception point (payload on stdin)",
	Long: `Evaluate the hooks registered for one interception point.

The host agent pipes the JSON intercept payload to stdin and reads the
decision from the exit code: 0 allows (an optional single-line JSON
annotation appears on stdout), 2 blocks (stderr starts with BLOCKED:),
1 signals an internal error the host should treat as transient.`,
}

// hookPoints maps each subcommand name to its interception point.
var hookPoints = []struct {
	use   string
	point intercept.Point
	short string
}{
	{"pre-user-prompt", intercept.PreUserPrompt, "User submitted a prompt"},
	{"pre-mcp-tool-use", intercept.PreMCPToolUse, "Agent invokes a named tool"},
	{"pre-run-command", intercept.PreRunCommand, "Agent invokes a shell-like tool"},
	{"pre-filesystem-write", intercept.PreFilesystemWrite, "Agent attempts a file write"},
	{"pre-write-code", intercept.PreWriteCode, "A content edit is about to be applied"},
	{"post-write", intercept.PostWrite, "Edits have been applied"},
	{"post-session", intercept.PostSession, "Session turn completed"},
	{"post-refusal", intercept.PostRefusal, "Agent emitted a refusal"},
}

func init() {
	for _, hp := range hookPoints {
		point := hp.point
		hookCmd.AddCommand(&cobra.Command{
			Use:   hp.use,
			Short: hp.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				os.Exit(runHook(cmd.Context(), point))
				return nil
			},
		})
	}
	rootCmd.AddCommand(hookCmd)
}

// newLogger builds the slog handler the whole invocation shares. Logs go
// to stderr: stdout is reserved for the annotation JSON.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// runHook wires the full stack for one invocation and executes the
// interception. It returns the process exit code rather than calling
// os.Exit itself, so the audit trail is always flushed on the way out.
func runHook(ctx context.Context, point intercept.Point) int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "internal error: %v\n", err)
		return intercept.ExitInternalError
	}
	logger := newLogger(cfg)

	// Policy: file loader behind the per-invocation compile cache.
	policyCache := memory.NewPolicyCache(policystore.NewLoader(cfg.PolicyPath, ".", logger))
	compiled := policyCache.Get()
	for _, bad := range compiled.BadPatterns {
		logger.Warn("policy pattern failed to compile, treated as never-matching", "pattern", bad)
	}

	// Session state.
	sessions := state.NewFileSessionStore(cfg.StateDir, logger)

	// Audit trail: JSON Lines file store plus the SQLite query index.
	fileStore, err := auditfile.NewFileAuditStore(auditfile.FileConfig{
		Dir:           cfg.Audit.Dir,
		RetentionDays: cfg.Audit.RetentionDays,
		MaxFileSizeMB: cfg.Audit.MaxFileSizeMB,
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "internal error: open audit store: %v\n", err)
		return intercept.ExitInternalError
	}
	defer func() { _ = fileStore.Close() }()

	auditOpts := []service.AuditOption{}
	if index, err := auditindex.Open(cfg.Audit.IndexPath); err != nil {
		logger.Warn("audit index unavailable, queries will be limited", "error", err)
	} else {
		defer func() { _ = index.Close() }()
		auditOpts = append(auditOpts, service.WithIndex(index, index))
	}

	auditor := service.NewAuditService(fileStore, logger, auditOpts...)
	auditor.Start(ctx)
	defer func() {
		if err := auditor.Close(context.Background()); err != nil {
			logger.Error("audit close failed", "error", err)
		}
	}()

	concerns, err := auditfile.NewConcernLog(cfg.Audit.Dir)
	if err != nil {
		logger.Warn("concern log unavailable", "error", err)
		concerns = nil
	}

	// Custom rule evaluator; a CEL bootstrap failure disables custom rules
	// but never the fixed hooks.
	var ruleEval hooks.RuleEvaluator
	if eval, err := celadapter.NewEvaluator(); err != nil {
		logger.Warn("CEL evaluator unavailable, custom rules disabled", "error", err)
	} else {
		ruleEval = eval
	}

	kernel := hooks.BuildKernel(&hook.Deps{
		Policy:        compiled,
		Logger:        logger,
		VerifyTimeout: time.Duration(cfg.VerifyTimeoutSeconds) * time.Second,
	}, sessions, ruleEval)

	var concernLogger service.ConcernLogger
	if concerns != nil {
		concernLogger = concerns
	}
	var dispatcher hookio.Dispatcher = service.NewEvaluationService(kernel, auditor, concernLogger, logger)

	if cfg.Observability.Enabled {
		telemetry, err := observability.New(ctx)
		if err != nil {
			logger.Warn("telemetry unavailable", "error", err)
		} else {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			defer func() {
				if err := telemetry.Shutdown(shutdownCtx); err != nil {
					logger.Warn("telemetry shutdown failed", "error", err)
				}
			}()
			dispatcher = telemetry.Instrument(dispatcher)
		}
	}

	runner := &hookio.Runner{
		Dispatcher: dispatcher,
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Logger:     logger,
	}
	return runner.Run(ctx, point)
}
