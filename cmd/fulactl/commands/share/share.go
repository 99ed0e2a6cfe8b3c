// Package share implements 'fulactl share' subcommands: issuing
// secret-link shares and store-and-forward inbox shares, and accepting
// either as a recipient.
package share

import "github.com/spf13/cobra"

// Cmd is the 'share' command group.
var Cmd = &cobra.Command{
	Use:   "share",
	Short: "Create and accept scoped, revocable bucket shares",
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(acceptCmd)
	Cmd.AddCommand(sendCmd)
	Cmd.AddCommand(inboxCmd)
}
