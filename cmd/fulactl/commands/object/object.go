// Package object implements 'fulactl object' subcommands: the owner-side
// encrypt/upload and download/decrypt halves of the gateway's data flow,
// built on pkg/client.
package object

import "github.com/spf13/cobra"

// Cmd is the 'object' command group.
var Cmd = &cobra.Command{
	Use:   "object",
	Short: "Put, get, list, and remove end-to-end encrypted objects",
}

func init() {
	Cmd.AddCommand(putCmd)
	Cmd.AddCommand(getCmd)
	Cmd.AddCommand(lsCmd)
	Cmd.AddCommand(rmCmd)
}
