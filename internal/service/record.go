package service

import (
	"time"

	"github.com/atlasgate/gatekeeper/internal/domain/audit"
	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
)

// auditRecordFor converts a dispatch result into the audit trail's record
// shape.
func auditRecordFor(payload *intercept.Payload, result *hook.Result, latency time.Duration) audit.Record {
	return audit.Record{
		Timestamp:     time.Now().UTC(),
		SessionID:     payload.SessionID,
		RequestID:     result.RequestID,
		Point:         string(payload.Point),
		HookName:      result.Decision.HookName,
		Decision:      string(result.Decision.Status),
		Reason:        result.Decision.Reason,
		ToolName:      payload.ToolInfo.ToolName,
		LatencyMicros: latency.Microseconds(),
	}
}
