// Package auditindex maintains a queryable SQLite index over the decision
// audit trail, so `gatekeeper audit query` can filter by session, hook,
// point, or decision without scanning the JSON Lines files. The index is a
// derived view: the file store remains the authoritative, append-only
// record, and the index can always be rebuilt from it.
package auditindex

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/atlasgate/gatekeeper/internal/domain/audit"
)

const schema = `
CREATE TABLE IF NOT EXISTS hook_decisions (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	ts             INTEGER NOT NULL,
	session_id     TEXT NOT NULL,
	request_id     TEXT NOT NULL,
	point          TEXT NOT NULL,
	hook           TEXT NOT NULL DEFAULT '',
	decision       TEXT NOT NULL,
	reason         TEXT NOT NULL DEFAULT '',
	tool_name      TEXT NOT NULL DEFAULT '',
	latency_micros INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_hook_decisions_ts ON hook_decisions(ts);
CREATE INDEX IF NOT EXISTS idx_hook_decisions_session ON hook_decisions(session_id, ts);
CREATE INDEX IF NOT EXISTS idx_hook_decisions_decision ON hook_decisions(decision, ts);
`

// Index is the SQLite-backed audit.QueryStore and secondary audit.Store.
type Index struct {
	db *sql.DB
}

// Open opens (and if necessary initializes) the index at path. The pure-Go
// driver needs no cgo; a single connection is enough for a short-lived CLI
// process and sidesteps SQLite's single-writer contention.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit index: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize audit index schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Append inserts records into the index inside one transaction.
func (ix *Index) Append(ctx context.Context, records ...audit.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin index transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO hook_decisions
		(ts, session_id, request_id, point, hook, decision, reason, tool_name, latency_micros)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare index insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.Timestamp.UTC().UnixMicro(), rec.SessionID, rec.RequestID,
			rec.Point, rec.HookName, rec.Decision, rec.Reason,
			rec.ToolName, rec.LatencyMicros)
		if err != nil {
			return fmt.Errorf("insert audit record: %w", err)
		}
	}
	return tx.Commit()
}

// Flush is a no-op: every Append commits its transaction.
func (ix *Index) Flush(_ context.Context) error { return nil }

// Close closes the underlying database.
func (ix *Index) Close() error { return ix.db.Close() }

// Query retrieves records matching the filter, newest first.
func (ix *Index) Query(ctx context.Context, filter audit.Filter) ([]audit.Record, error) {
	if !filter.StartTime.IsZero() && !filter.EndTime.IsZero() {
		if err := audit.ValidateRange(filter.StartTime, filter.EndTime); err != nil {
			return nil, err
		}
	}

	var conds []string
	var args []any
	if !filter.StartTime.IsZero() {
		conds = append(conds, "ts >= ?")
		args = append(args, filter.StartTime.UTC().UnixMicro())
	}
	if !filter.EndTime.IsZero() {
		conds = append(conds, "ts <= ?")
		args = append(args, filter.EndTime.UTC().UnixMicro())
	}
	if filter.SessionID != "" {
		conds = append(conds, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.HookName != "" {
		conds = append(conds, "hook = ?")
		args = append(args, filter.HookName)
	}
	if filter.Point != "" {
		conds = append(conds, "point = ?")
		args = append(args, filter.Point)
	}
	if filter.Decision != "" {
		conds = append(conds, "decision = ?")
		args = append(args, filter.Decision)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	query := "SELECT ts, session_id, request_id, point, hook, decision, reason, tool_name, latency_micros FROM hook_decisions"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY ts DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := ix.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit index: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []audit.Record
	for rows.Next() {
		var rec audit.Record
		var ts int64
		if err := rows.Scan(&ts, &rec.SessionID, &rec.RequestID, &rec.Point,
			&rec.HookName, &rec.Decision, &rec.Reason, &rec.ToolName, &rec.LatencyMicros); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		rec.Timestamp = time.UnixMicro(ts).UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

// QueryStats aggregates counts for the time range via SQL.
func (ix *Index) QueryStats(ctx context.Context, start, end time.Time) (*audit.Stats, error) {
	if err := audit.ValidateRange(start, end); err != nil {
		return nil, err
	}

	stats := &audit.Stats{
		ByHook:     map[string]audit.HookStats{},
		ByDecision: map[string]int64{},
		ByPoint:    map[string]int64{},
	}
	lo, hi := start.UTC().UnixMicro(), end.UTC().UnixMicro()

	row := ix.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT session_id) FROM hook_decisions WHERE ts BETWEEN ? AND ?`, lo, hi)
	if err := row.Scan(&stats.TotalEvaluations, &stats.UniqueSessions); err != nil {
		return nil, fmt.Errorf("scan totals: %w", err)
	}

	rows, err := ix.db.QueryContext(ctx,
		`SELECT hook, decision, point, COUNT(*) FROM hook_decisions
		 WHERE ts BETWEEN ? AND ? GROUP BY hook, decision, point`, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("query grouped counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var hookName, decision, point string
		var count int64
		if err := rows.Scan(&hookName, &decision, &point, &count); err != nil {
			return nil, fmt.Errorf("scan grouped count: %w", err)
		}
		stats.ByDecision[decision] += count
		stats.ByPoint[point] += count

		hs := stats.ByHook[hookName]
		hs.Evaluations += count
		if decision == audit.DecisionBlock {
			hs.Blocks += count
		}
		stats.ByHook[hookName] = hs
	}
	return stats, rows.Err()
}

// Compile-time interface verification.
var (
	_ audit.Store      = (*Index)(nil)
	_ audit.QueryStore = (*Index)(nil)
)
