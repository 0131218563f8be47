package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/atlasgate/gatekeeper/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect gatekeeper's operational configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Print the configuration gatekeeper would run with: file values,
environment overrides, CLI flag overrides, and defaults, merged in that
order. Useful for checking what a hook invocation will actually use
before wiring the host agent to it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if used := config.ConfigFileUsed(); used != "" {
			fmt.Fprintf(os.Stderr, "# loaded from %s\n", used)
		} else {
			fmt.Fprintln(os.Stderr, "# no config file found, defaults and environment only")
		}

		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Fprint(os.Stdout, string(out))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
