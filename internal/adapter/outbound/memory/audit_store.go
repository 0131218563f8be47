// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/atlasgate/gatekeeper/internal/domain/audit"
)

const defaultRecentCap = 1000

// AuditStore implements audit.Store writing JSON Lines to a writer
// (stdout by default) while keeping a bounded in-memory ring buffer that
// also serves audit.QueryStore. Used by tests; the gatekeeper command
// always records to the file audit store.
type AuditStore struct {
	encoder *json.Encoder
	writer  io.Writer
	mu      sync.Mutex
	// recent is a bounded ring buffer of the most recent records.
	recent []audit.Record
	cap    int
}

// resolveCapacity returns the first positive capacity value, or
// defaultRecentCap.
func resolveCapacity(capacity ...int) int {
	if len(capacity) > 0 && capacity[0] > 0 {
		return capacity[0]
	}
	return defaultRecentCap
}

// NewAuditStore creates a new audit store writing to stdout.
// An optional capacity parameter sets the ring buffer size (default 1000).
func NewAuditStore(capacity ...int) *AuditStore {
	return NewAuditStoreWithWriter(os.Stdout, capacity...)
}

// NewAuditStoreWithWriter creates an audit store writing to the given
// writer. An optional capacity parameter sets the ring buffer size
// (default 1000).
func NewAuditStoreWithWriter(w io.Writer, capacity ...int) *AuditStore {
	c := resolveCapacity(capacity...)
	return &AuditStore{
		encoder: json.NewEncoder(w),
		writer:  w,
		recent:  make([]audit.Record, 0, c),
		cap:     c,
	}
}

// Append stores audit records by writing them as JSON to the output and
// keeping them in the in-memory ring buffer.
func (s *AuditStore) Append(ctx context.Context, records ...audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if err := s.encoder.Encode(r); err != nil {
			return err
		}
		if len(s.recent) >= s.cap {
			// Shift left, drop oldest.
			copy(s.recent, s.recent[1:])
			s.recent[len(s.recent)-1] = r
		} else {
			s.recent = append(s.recent, r)
		}
	}
	return nil
}

// Flush forces pending records to storage.
// No-op for this implementation (no buffering).
func (s *AuditStore) Flush(ctx context.Context) error {
	return nil
}

// Close releases resources.
func (s *AuditStore) Close() error {
	// Close file if it's not stdout/stderr
	if f, ok := s.writer.(*os.File); ok && f != os.Stdout && f != os.Stderr {
		return f.Close()
	}
	return nil
}

// GetRecent returns the N most recent audit records (newest first).
func (s *AuditStore) GetRecent(n int) []audit.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.recent)
	if n > total {
		n = total
	}
	if n == 0 {
		return nil
	}
	result := make([]audit.Record, n)
	for i := 0; i < n; i++ {
		result[i] = s.recent[total-1-i]
	}
	return result
}

// Query retrieves audit records matching the filter from the in-memory
// buffer, newest first.
func (s *AuditStore) Query(ctx context.Context, filter audit.Filter) ([]audit.Record, error) {
	if !filter.StartTime.IsZero() && !filter.EndTime.IsZero() {
		if err := audit.ValidateRange(filter.StartTime, filter.EndTime); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	var result []audit.Record
	for i := len(s.recent) - 1; i >= 0 && len(result) < limit; i-- {
		rec := s.recent[i]
		if !matches(rec, filter) {
			continue
		}
		result = append(result, rec)
	}
	return result, nil
}

// QueryStats aggregates statistics over the buffered records in the given
// time range.
func (s *AuditStore) QueryStats(ctx context.Context, start, end time.Time) (*audit.Stats, error) {
	if err := audit.ValidateRange(start, end); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &audit.Stats{
		ByHook:     map[string]audit.HookStats{},
		ByDecision: map[string]int64{},
		ByPoint:    map[string]int64{},
	}
	sessions := map[string]bool{}

	for _, rec := range s.recent {
		if rec.Timestamp.Before(start) || rec.Timestamp.After(end) {
			continue
		}
		stats.TotalEvaluations++
		sessions[rec.SessionID] = true
		stats.ByDecision[rec.Decision]++
		stats.ByPoint[rec.Point]++

		hs := stats.ByHook[rec.HookName]
		hs.Evaluations++
		if rec.Decision == audit.DecisionBlock {
			hs.Blocks++
		}
		stats.ByHook[rec.HookName] = hs
	}
	stats.UniqueSessions = int64(len(sessions))
	return stats, nil
}

func matches(rec audit.Record, filter audit.Filter) bool {
	if !filter.StartTime.IsZero() && rec.Timestamp.Before(filter.StartTime) {
		return false
	}
	if !filter.EndTime.IsZero() && rec.Timestamp.After(filter.EndTime) {
		return false
	}
	if filter.Decision != "" && !strings.EqualFold(rec.Decision, filter.Decision) {
		return false
	}
	if filter.HookName != "" && rec.HookName != filter.HookName {
		return false
	}
	if filter.SessionID != "" && rec.SessionID != filter.SessionID {
		return false
	}
	if filter.Point != "" && rec.Point != filter.Point {
		return false
	}
	return true
}

// Compile-time interface verification.
var (
	_ audit.Store      = (*AuditStore)(nil)
	_ audit.QueryStore = (*AuditStore)(nil)
)
