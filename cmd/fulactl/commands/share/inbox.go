package share

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fula-project/gateway/pkg/client"
	"github.com/fula-project/gateway/pkg/sharing"
)

var (
	inboxFlags    connFlags
	inboxBucket   string
	inboxIdentity string
	inboxAccept   string
)

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "List and accept pending store-and-forward shares",
	Long: `List every pending inbox entry addressed to the recipient identity, or
(with --accept) decrypt one specific entry and print the DEK and scope it
grants. Entries remain HPKE-sealed at rest; only a matching identity can
read them.`,
	RunE: runInbox,
}

func init() {
	registerConnFlags(inboxCmd, &inboxFlags)
	inboxCmd.Flags().StringVar(&inboxBucket, "inbox-bucket", "", "Bucket hosting the shared inbox namespace (required)")
	inboxCmd.Flags().StringVar(&inboxIdentity, "recipient-identity", "", "Path to the recipient's identity file (required)")
	inboxCmd.Flags().StringVar(&inboxAccept, "accept", "", "Entry ID to decrypt instead of just listing")
	_ = inboxCmd.MarkFlagRequired("inbox-bucket")
	_ = inboxCmd.MarkFlagRequired("recipient-identity")
}

func runInbox(cmd *cobra.Command, args []string) error {
	c, err := inboxFlags.newClient()
	if err != nil {
		return err
	}
	mgr, err := client.LoadIdentity(inboxIdentity)
	if err != nil {
		return err
	}
	pub, priv := mgr.Keypair()

	entries, err := c.ListInboxEntries(cmd.Context(), inboxBucket, pub)
	if err != nil {
		return err
	}

	if inboxAccept == "" {
		for _, e := range entries {
			created := time.Unix(e.CreatedAt, 0).UTC().Format(time.RFC3339)
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", e.ID, e.Status, created)
		}
		return nil
	}

	for _, e := range entries {
		if e.ID != inboxAccept {
			continue
		}
		envelope, err := client.AcceptInboxEntry(e, priv)
		if err != nil {
			return err
		}
		accepted, err := sharing.NewRecipient(priv).AcceptShare(time.Now(), envelope.Token)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "label: %s\n", envelope.Label)
		fmt.Fprintf(cmd.OutOrStdout(), "message: %s\n", envelope.Message)
		fmt.Fprintf(cmd.OutOrStdout(), "path scope: %s\n", accepted.PathScope)
		fmt.Fprintf(cmd.OutOrStdout(), "dek: %x\n", accepted.DEK.Bytes())
		return nil
	}
	return fmt.Errorf("no pending entry %s for this identity", inboxAccept)
}
