package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fula-project/gateway/pkg/config"
)

var validateConfigFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a fula-gateway configuration file",
	Long: `Load and validate a fula-gateway configuration file, reporting any
validation errors without starting the server.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateConfigFile, "config", "", "Path to config file (default: $XDG_CONFIG_HOME/fula-gateway/config.yaml)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(validateConfigFile)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
	return nil
}
