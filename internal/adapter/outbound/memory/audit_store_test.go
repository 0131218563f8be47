// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/atlasgate/gatekeeper/internal/domain/audit"
)

func record(session, hook, decision string, at time.Time) audit.Record {
	return audit.Record{
		Timestamp: at,
		SessionID: session,
		RequestID: "req-" + session,
		Point:     "pre_mcp_tool_use",
		HookName:  hook,
		Decision:  decision,
	}
}

func TestAuditStore_AppendWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	store := NewAuditStoreWithWriter(&buf)

	now := time.Now().UTC()
	err := store.Append(context.Background(),
		record("s1", "pre_session_state_enforcement", audit.DecisionAllow, now),
		record("s1", "pre_mcp_tool_use_allowlist", audit.DecisionBlock, now),
	)
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSON lines, got %d", len(lines))
	}
	if !strings.Contains(lines[1], `"decision":"block"`) {
		t.Errorf("second line should carry the block decision: %s", lines[1])
	}
}

func TestAuditStore_RingBufferEvictsOldest(t *testing.T) {
	store := NewAuditStoreWithWriter(&bytes.Buffer{}, 3)
	now := time.Now().UTC()

	for _, session := range []string{"a", "b", "c", "d"} {
		if err := store.Append(context.Background(), record(session, "h", audit.DecisionAllow, now)); err != nil {
			t.Fatal(err)
		}
	}

	recent := store.GetRecent(10)
	if len(recent) != 3 {
		t.Fatalf("expected capped buffer of 3, got %d", len(recent))
	}
	if recent[0].SessionID != "d" {
		t.Errorf("newest first: expected d, got %s", recent[0].SessionID)
	}
	for _, r := range recent {
		if r.SessionID == "a" {
			t.Error("oldest record should have been evicted")
		}
	}
}

func TestAuditStore_QueryFilters(t *testing.T) {
	store := NewAuditStoreWithWriter(&bytes.Buffer{})
	now := time.Now().UTC()

	_ = store.Append(context.Background(),
		record("s1", "hook_a", audit.DecisionAllow, now),
		record("s1", "hook_b", audit.DecisionBlock, now),
		record("s2", "hook_a", audit.DecisionBlock, now),
	)

	got, err := store.Query(context.Background(), audit.Filter{Decision: audit.DecisionBlock})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(got))
	}

	got, err = store.Query(context.Background(), audit.Filter{SessionID: "s2", Decision: audit.DecisionBlock})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].HookName != "hook_a" {
		t.Errorf("session filter failed: %+v", got)
	}
}

func TestAuditStore_QueryRejectsWideRange(t *testing.T) {
	store := NewAuditStoreWithWriter(&bytes.Buffer{})
	now := time.Now().UTC()

	_, err := store.Query(context.Background(), audit.Filter{
		StartTime: now.Add(-8 * 24 * time.Hour),
		EndTime:   now,
	})
	if err != audit.ErrDateRangeExceeded {
		t.Errorf("expected ErrDateRangeExceeded, got %v", err)
	}
}

func TestAuditStore_QueryStats(t *testing.T) {
	store := NewAuditStoreWithWriter(&bytes.Buffer{})
	now := time.Now().UTC()

	_ = store.Append(context.Background(),
		record("s1", "hook_a", audit.DecisionAllow, now),
		record("s1", "hook_a", audit.DecisionBlock, now),
		record("s2", "hook_b", audit.DecisionAnnotate, now),
	)

	stats, err := store.QueryStats(context.Background(), now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalEvaluations != 3 {
		t.Errorf("total: got %d", stats.TotalEvaluations)
	}
	if stats.UniqueSessions != 2 {
		t.Errorf("sessions: got %d", stats.UniqueSessions)
	}
	if hs := stats.ByHook["hook_a"]; hs.Evaluations != 2 || hs.Blocks != 1 {
		t.Errorf("hook_a stats: %+v", hs)
	}
	if stats.ByDecision[audit.DecisionAnnotate] != 1 {
		t.Errorf("annotate count: %d", stats.ByDecision[audit.DecisionAnnotate])
	}
}
