// Package audit contains domain types for the gateway's decision audit
// trail: one record per hook evaluation, persisted outside the per-session
// state so operators can query the full decision history across sessions.
package audit

import (
	"strings"
	"time"
)

// Decision constants for audit records, mirroring the intercept Decision
// statuses.
const (
	DecisionAllow    = "allow"
	DecisionAnnotate = "annotate"
	DecisionBlock    = "block"
)

// Record represents a single auditable hook evaluation.
type Record struct {
	// Timestamp is when the hook evaluation completed.
	Timestamp time.Time `json:"timestamp"`
	// SessionID of the agent session being gated.
	SessionID string `json:"session_id"`
	// RequestID correlates every hook evaluated within one dispatch.
	RequestID string `json:"request_id"`
	// Point is the interception point dispatched.
	Point string `json:"point"`
	// HookName is the hook that produced the decision; empty for the
	// dispatch-level aggregate record.
	HookName string `json:"hook,omitempty"`
	// Decision is "allow", "annotate", or "block".
	Decision string `json:"decision"`
	// Reason explains a block or annotate outcome.
	Reason string `json:"reason,omitempty"`
	// ToolName is the tool carried by the intercept payload, if any.
	ToolName string `json:"tool_name,omitempty"`
	// LatencyMicros is the hook (or dispatch) latency in microseconds.
	LatencyMicros int64 `json:"latency_micros,omitempty"`
}

// sensitiveKeywords lists substrings that indicate a sensitive argument key.
// Comparison is case-insensitive.
var sensitiveKeywords = []string{
	"password", "secret", "token", "api_key", "apikey",
	"credential", "auth", "private_key", "privatekey",
}

// RedactSensitiveArgs returns a copy of args with sensitive values masked.
// A key is considered sensitive if it contains any of the sensitiveKeywords
// (case-insensitive). Values are replaced with "***REDACTED***".
func RedactSensitiveArgs(args map[string]interface{}) map[string]interface{} {
	if len(args) == 0 {
		return args
	}
	redacted := make(map[string]interface{}, len(args))
	for k, v := range args {
		if isSensitiveKey(k) {
			redacted[k] = "***REDACTED***"
		} else {
			redacted[k] = v
		}
	}
	return redacted
}

// isSensitiveKey checks if a key name indicates sensitive data.
func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
