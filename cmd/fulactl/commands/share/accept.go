package share

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fula-project/gateway/pkg/client"
)

var (
	acceptIdentity string
	acceptURL      string
)

var acceptCmd = &cobra.Command{
	Use:   "accept",
	Short: "Accept a secret-link share URL, printing the granted DEK and scope",
	Long: `Parse a secret-link URL produced by 'share create', decrypt its wrapped
DEK under the recipient's own identity, and print the resulting bucket
DEK (hex) along with the path scope and permissions it carries. No
network round trip to the gateway is required: the fragment, never sent
over HTTP, already carries the whole capability.`,
	RunE: runAccept,
}

func init() {
	acceptCmd.Flags().StringVar(&acceptIdentity, "identity", "", "Path to the recipient's identity file (required)")
	acceptCmd.Flags().StringVar(&acceptURL, "url", "", "Secret-link URL to accept (required)")
	_ = acceptCmd.MarkFlagRequired("identity")
	_ = acceptCmd.MarkFlagRequired("url")
}

func runAccept(cmd *cobra.Command, args []string) error {
	mgr, err := client.LoadIdentity(acceptIdentity)
	if err != nil {
		return err
	}
	_, priv := mgr.Keypair()

	accepted, err := client.AcceptShareURL(time.Now(), acceptURL, priv)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "dek: %x\n", accepted.DEK.Bytes())
	fmt.Fprintf(cmd.OutOrStdout(), "path scope: %s\n", accepted.PathScope)
	fmt.Fprintf(cmd.OutOrStdout(), "read: %v  write: %v  delete: %v\n",
		accepted.Permissions.CanRead, accepted.Permissions.CanWrite, accepted.Permissions.CanDelete)
	return nil
}
