package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/atlasgate/gatekeeper/internal/adapter/outbound/auditindex"
	"github.com/atlasgate/gatekeeper/internal/domain/audit"
	"github.com/atlasgate/gatekeeper/internal/service"
)

var (
	auditSince    string
	auditSession  string
	auditHook     string
	auditPoint    string
	auditDecision string
	auditLimit    int
	auditFormat   string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the decision audit trail",
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query hook decisions from the audit index",
	Long: `Query the SQLite audit index for hook decisions.

Formats:
  json        One record per line (default)
  prometheus  Aggregated counters in the Prometheus text exposition format,
              derived from the queried range on demand

Examples:
  # Everything a session was blocked on in the last day
  gatekeeper audit query --session sess-1 --decision block --since 24h

  # Counter snapshot for dashboards
  gatekeeper audit query --since 24h --format prometheus`,
	RunE: runAuditQuery,
}

func init() {
	auditQueryCmd.Flags().StringVar(&auditSince, "since", "24h", "how far back to query (Go duration, max 168h)")
	auditQueryCmd.Flags().StringVar(&auditSession, "session", "", "filter by session ID")
	auditQueryCmd.Flags().StringVar(&auditHook, "hook", "", "filter by hook name")
	auditQueryCmd.Flags().StringVar(&auditPoint, "point", "", "filter by interception point")
	auditQueryCmd.Flags().StringVar(&auditDecision, "decision", "", "filter by decision (allow, annotate, block)")
	auditQueryCmd.Flags().IntVar(&auditLimit, "limit", 100, "maximum records to return")
	auditQueryCmd.Flags().StringVar(&auditFormat, "format", "json", "output format (json, prometheus)")

	auditCmd.AddCommand(auditQueryCmd)
	rootCmd.AddCommand(auditCmd)
}

func runAuditQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	since, err := time.ParseDuration(auditSince)
	if err != nil {
		return fmt.Errorf("invalid --since duration: %w", err)
	}
	end := time.Now().UTC()
	start := end.Add(-since)

	index, err := auditindex.Open(cfg.Audit.IndexPath)
	if err != nil {
		return fmt.Errorf("open audit index: %w", err)
	}
	defer func() { _ = index.Close() }()

	switch auditFormat {
	case "prometheus":
		return renderAuditStats(cmd, index, start, end)
	case "json":
		return renderAuditRecords(cmd, index, start, end)
	default:
		return fmt.Errorf("unrecognized --format %q (want json or prometheus)", auditFormat)
	}
}

func renderAuditRecords(cmd *cobra.Command, index *auditindex.Index, start, end time.Time) error {
	records, err := index.Query(cmd.Context(), audit.Filter{
		StartTime: start,
		EndTime:   end,
		SessionID: auditSession,
		HookName:  auditHook,
		Point:     auditPoint,
		Decision:  auditDecision,
		Limit:     auditLimit,
	})
	if err != nil {
		return fmt.Errorf("query audit index: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	for _, rec := range records {
		if err := encoder.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

func renderAuditStats(cmd *cobra.Command, index *auditindex.Index, start, end time.Time) error {
	stats, err := index.QueryStats(cmd.Context(), start, end)
	if err != nil {
		return fmt.Errorf("query audit stats: %w", err)
	}

	text, err := service.RenderPrometheusText(stats)
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, text)
	return nil
}
