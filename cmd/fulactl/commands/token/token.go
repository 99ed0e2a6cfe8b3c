// Package token implements 'fulactl token' subcommands for minting and
// inspecting bearer access tokens outside the wire API (the gateway has
// no token-issuing HTTP endpoint; an operator with access to the
// gateway's JWT secret mints tokens directly).
package token

import "github.com/spf13/cobra"

// Cmd is the 'token' command group.
var Cmd = &cobra.Command{
	Use:   "token",
	Short: "Issue and inspect bucket-owner access tokens",
}

func init() {
	Cmd.AddCommand(issueCmd)
}
