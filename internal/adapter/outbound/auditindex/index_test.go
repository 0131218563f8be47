package auditindex

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/atlasgate/gatekeeper/internal/domain/audit"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(filepath.Join(t.TempDir(), "audit-index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func indexRecord(session, hookName, decision string, at time.Time) audit.Record {
	return audit.Record{
		Timestamp: at,
		SessionID: session,
		RequestID: "req-1",
		Point:     "pre_write_code",
		HookName:  hookName,
		Decision:  decision,
		Reason:    "test reason",
		ToolName:  "write_file",
	}
}

func TestIndex_RoundTrip(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	err := ix.Append(ctx,
		indexRecord("s1", "pre_write_completeness", audit.DecisionBlock, now),
		indexRecord("s1", "pre_write_code_policy", audit.DecisionAllow, now.Add(time.Second)),
	)
	if err != nil {
		t.Fatal(err)
	}

	records, err := ix.Query(ctx, audit.Filter{SessionID: "s1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	// Newest first.
	if records[0].HookName != "pre_write_code_policy" {
		t.Errorf("ordering: got %s first", records[0].HookName)
	}
	if !records[1].Timestamp.Equal(now) {
		t.Errorf("timestamp round trip: got %v, want %v", records[1].Timestamp, now)
	}
	if records[1].Reason != "test reason" {
		t.Errorf("reason round trip: got %q", records[1].Reason)
	}
}

func TestIndex_FilterByDecisionAndHook(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = ix.Append(ctx,
		indexRecord("s1", "hook_a", audit.DecisionBlock, now),
		indexRecord("s2", "hook_a", audit.DecisionAllow, now),
		indexRecord("s3", "hook_b", audit.DecisionBlock, now),
	)

	records, err := ix.Query(ctx, audit.Filter{Decision: audit.DecisionBlock, HookName: "hook_a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].SessionID != "s1" {
		t.Errorf("filter failed: %+v", records)
	}
}

func TestIndex_QueryRejectsWideRange(t *testing.T) {
	ix := openTestIndex(t)
	now := time.Now().UTC()

	_, err := ix.Query(context.Background(), audit.Filter{
		StartTime: now.Add(-8 * 24 * time.Hour),
		EndTime:   now,
	})
	if err != audit.ErrDateRangeExceeded {
		t.Errorf("expected ErrDateRangeExceeded, got %v", err)
	}
}

func TestIndex_QueryStats(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = ix.Append(ctx,
		indexRecord("s1", "hook_a", audit.DecisionBlock, now),
		indexRecord("s1", "hook_a", audit.DecisionAllow, now),
		indexRecord("s2", "hook_b", audit.DecisionAnnotate, now),
	)

	stats, err := ix.QueryStats(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalEvaluations != 3 || stats.UniqueSessions != 2 {
		t.Errorf("totals: %+v", stats)
	}
	if hs := stats.ByHook["hook_a"]; hs.Evaluations != 2 || hs.Blocks != 1 {
		t.Errorf("hook_a: %+v", hs)
	}
	if stats.ByPoint["pre_write_code"] != 3 {
		t.Errorf("by point: %+v", stats.ByPoint)
	}
}

func TestIndex_Reopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit-index.db")
	ctx := context.Background()
	now := time.Now().UTC()

	ix, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = ix.Append(ctx, indexRecord("s1", "hook_a", audit.DecisionAllow, now))
	_ = ix.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = reopened.Close() }()

	records, err := reopened.Query(ctx, audit.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("expected the record to survive reopen, got %d", len(records))
	}
}
