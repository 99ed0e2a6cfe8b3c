// Package config implements 'fulactl config' subcommands.
package config

import "github.com/spf13/cobra"

// Cmd is the 'config' command group.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and validate fula-gateway configuration",
}

func init() {
	Cmd.AddCommand(schemaCmd)
	Cmd.AddCommand(validateCmd)
}
