// Package identity implements 'fulactl identity' subcommands for
// generating and inspecting an owner's long-term key material.
package identity

import "github.com/spf13/cobra"

// Cmd is the 'identity' command group.
var Cmd = &cobra.Command{
	Use:   "identity",
	Short: "Generate and inspect owner key material",
}

func init() {
	Cmd.AddCommand(initCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(rotateCmd)
}
