package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
)

// Kernel is the hook dispatch table this service orchestrates.
type Kernel interface {
	Dispatch(ctx context.Context, payload *intercept.Payload) (*hook.Result, error)
}

// ConcernLogger appends a human-readable line to a named concern log.
type ConcernLogger interface {
	Append(concern, message string) error
}

// EvaluationService runs one interception through the hook kernel, records
// the aggregate decision to the audit trail, and logs the outcome. It is
// the dispatcher the CLI hands to the intercept I/O runner.
type EvaluationService struct {
	kernel   Kernel
	auditor  *AuditService
	concerns ConcernLogger
	logger   *slog.Logger
}

// NewEvaluationService wires the kernel to the audit trail. concerns may be
// nil when no concern log directory is configured.
func NewEvaluationService(kernel Kernel, auditor *AuditService, concerns ConcernLogger, logger *slog.Logger) *EvaluationService {
	return &EvaluationService{kernel: kernel, auditor: auditor, concerns: concerns, logger: logger}
}

// Dispatch evaluates the payload's interception point and records the
// outcome. Audit recording is fire-and-forget through the async audit
// service; a full audit channel degrades to a counted drop, never a stall
// on the enforcement path.
func (s *EvaluationService) Dispatch(ctx context.Context, payload *intercept.Payload) (*hook.Result, error) {
	start := time.Now()

	result, err := s.kernel.Dispatch(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("dispatch %s: %w", payload.Point, err)
	}

	latency := time.Since(start)
	s.record(payload, result, latency)

	for hookName, hookErr := range result.HookErrors {
		s.logger.Warn("hook reported an internal error",
			"request_id", result.RequestID,
			"hook", hookName,
			"error", hookErr,
		)
	}

	logAttrs := []any{
		"request_id", result.RequestID,
		"point", string(payload.Point),
		"tool", payload.ToolInfo.ToolName,
		"status", string(result.Decision.Status),
		"latency_ms", latency.Milliseconds(),
	}
	if result.Decision.IsBlock() {
		s.logger.Warn("interception blocked", append(logAttrs, "reason", result.Decision.Reason)...)
	} else {
		s.logger.Debug("interception evaluated", logAttrs...)
	}

	return result, nil
}

// record writes the aggregate decision to the audit trail and, for blocks,
// a human-readable line to the enforcement concern log.
func (s *EvaluationService) record(payload *intercept.Payload, result *hook.Result, latency time.Duration) {
	if s.auditor != nil {
		s.auditor.Record(auditRecordFor(payload, result, latency))
	}

	if s.concerns != nil && result.Decision.IsBlock() {
		msg := fmt.Sprintf("%s blocked %s (session %s, request %s): %s",
			result.Decision.HookName, payload.Point, payload.SessionID,
			result.RequestID, result.Decision.Reason)
		if err := s.concerns.Append("enforcement", msg); err != nil {
			s.logger.Warn("failed to append concern log", "error", err)
		}
	}
}
