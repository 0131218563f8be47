// Package cmd provides the CLI commands for gatekeeper.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/atlasgate/gatekeeper/internal/config"
)

var cfgFile string
var stateDirFlag string
var policyPathFlag string

var rootCmd = &cobra.Command{
	Use:   "gatekeeper",
	Short: "Gatekeeper - policy enforcement gateway for AI coding agents",
	Long: `Gatekeeper sits between an AI coding agent and its capability surface.
The host agent invokes it once per interception point as a short-lived
process: a JSON intercept payload arrives on stdin, the hooks for that
point run in a fixed order, and the decision is reported through the exit
code (0 allow, 1 internal error, 2 block) with a BLOCKED: line on stderr.

Quick start:
  1. Install a policy document at /etc/windsurf/policy/policy.json
     (or <repo>/windsurf/policy/policy.json)
  2. Wire the host agent's hook configuration to invoke
     gatekeeper hook <interception-point>

Configuration:
  Gatekeeper's own settings are loaded from gatekeeper.yaml in the current
  directory, $HOME/.gatekeeper/, or /etc/gatekeeper/.

  Environment variables can override config values with the GATEKEEPER_ prefix.
  Example: GATEKEEPER_STATE_DIR=/var/lib/gatekeeper/sessions

Commands:
  hook        Evaluate one interception point (payload on stdin)
  audit       Query the decision audit trail
  reset       Remove persisted session state
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./gatekeeper.yaml)")
	rootCmd.PersistentFlags().StringVar(&stateDirFlag, "state-dir", "", "session state directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&policyPathFlag, "policy", "", "policy document path (overrides the default search)")
}

func initConfig() {
	config.InitViper(cfgFile)
}

// loadConfig resolves the operational config with CLI flag overrides
// applied.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return nil, err
	}
	if stateDirFlag != "" {
		cfg.StateDir = stateDirFlag
	}
	if policyPathFlag != "" {
		cfg.PolicyPath = policyPathFlag
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
