package audit

import (
	"context"
	"errors"
	"time"
)

// ErrDateRangeExceeded is returned when the query date range exceeds the
// maximum a single query may cover.
var ErrDateRangeExceeded = errors.New("date range exceeds maximum of 7 days")

// Store persists audit records. Interface owned by domain per hexagonal
// architecture; implementations handle batching and rotation.
type Store interface {
	// Append stores audit records. Must be non-blocking from the caller's
	// perspective; the audit trail must never stall a hook evaluation.
	Append(ctx context.Context, records ...Record) error

	// Flush forces pending records to storage. Called before process exit;
	// every gatekeeper invocation is short-lived, so an unflushed record is
	// a lost record.
	Flush(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Filter specifies query parameters for audit log queries.
type Filter struct {
	// StartTime is the beginning of the time range.
	StartTime time.Time
	// EndTime is the end of the time range.
	EndTime time.Time
	// SessionID filters by session (optional).
	SessionID string
	// HookName filters by hook (optional).
	HookName string
	// Point filters by interception point (optional).
	Point string
	// Decision filters by decision (optional: allow, annotate, block).
	Decision string
	// Limit is the maximum number of records to return (default 100).
	Limit int
}

// HookStats contains per-hook audit statistics.
type HookStats struct {
	// Evaluations is the total number of evaluations of this hook.
	Evaluations int64
	// Blocks is the number of evaluations that blocked.
	Blocks int64
}

// Stats contains aggregated audit statistics for a time period, the data
// behind `gatekeeper audit query --format=prometheus`.
type Stats struct {
	// TotalEvaluations is the total number of hook evaluation records.
	TotalEvaluations int64
	// UniqueSessions is the count of distinct session IDs.
	UniqueSessions int64
	// ByHook maps hook names to per-hook statistics.
	ByHook map[string]HookStats
	// ByDecision maps decision values to counts.
	ByDecision map[string]int64
	// ByPoint maps interception points to counts.
	ByPoint map[string]int64
}

// QueryStore provides read access to the audit trail for operator queries.
// Separate from Store, which handles writes.
type QueryStore interface {
	// Query retrieves audit records matching the filter, newest first.
	// Returns ErrDateRangeExceeded if EndTime - StartTime > 7 days.
	Query(ctx context.Context, filter Filter) ([]Record, error)

	// QueryStats returns aggregated statistics for the given time range.
	QueryStats(ctx context.Context, start, end time.Time) (*Stats, error)
}

// MaxQueryRange bounds how much history a single query may cover, keeping
// index scans cheap for an interactive CLI.
const MaxQueryRange = 7 * 24 * time.Hour

// ValidateRange reports whether a query's time range is within
// MaxQueryRange.
func ValidateRange(start, end time.Time) error {
	if end.Sub(start) > MaxQueryRange {
		return ErrDateRangeExceeded
	}
	return nil
}
