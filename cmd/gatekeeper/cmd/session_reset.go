package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	resetIncludeAudit bool
	resetForce        bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset gatekeeper to a clean state",
	Long: `Reset gatekeeper by removing persisted session state.

By default, only the session state directory is removed. This clears every
session's lifecycle position and plan-hash binding: the next interception
for any session starts from INIT and requires begin_session again.

The audit trail is deliberately NOT removed by default: it is the
append-only record of past decisions.

Optional flags:
  --include-audit   Also remove audit log files and the audit index
  --force           Skip confirmation prompt

Examples:
  # Reset session state only (interactive confirmation)
  gatekeeper reset

  # Reset everything without prompting
  gatekeeper reset --include-audit --force`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetIncludeAudit, "include-audit", false, "Also remove audit log files and the audit index")
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "Skip confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Build list of targets to remove.
	type target struct {
		path string
		desc string
	}
	targets := []target{
		{cfg.StateDir, "session state directory"},
	}
	if resetIncludeAudit {
		targets = append(targets, target{cfg.Audit.Dir, "audit directory"})
		// The index usually lives inside the audit dir; name it separately
		// in case the operator pointed it elsewhere.
		if !strings.HasPrefix(cfg.Audit.IndexPath, cfg.Audit.Dir+string(filepath.Separator)) {
			targets = append(targets, target{cfg.Audit.IndexPath, "audit index"})
		}
	}

	// Check what actually exists.
	var existing []target
	for _, t := range targets {
		if _, err := os.Stat(t.path); err == nil {
			existing = append(existing, t)
		}
	}

	if len(existing) == 0 {
		fmt.Fprintln(os.Stderr, "Nothing to reset: no state files found.")
		return nil
	}

	if !resetForce {
		fmt.Fprintln(os.Stderr, "The following will be removed:")
		for _, t := range existing {
			fmt.Fprintf(os.Stderr, "  %s (%s)\n", t.path, t.desc)
		}
		fmt.Fprint(os.Stderr, "Continue? [y/N] ")

		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Fprintln(os.Stderr, "Aborted.")
			return nil
		}
	}

	for _, t := range existing {
		if err := os.RemoveAll(t.path); err != nil {
			return fmt.Errorf("remove %s: %w", t.desc, err)
		}
		fmt.Fprintf(os.Stderr, "Removed %s: %s\n", t.desc, t.path)
	}
	return nil
}
