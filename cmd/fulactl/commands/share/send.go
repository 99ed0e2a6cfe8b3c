package share

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	sendFlags     connFlags
	sendInboxBkt  string
	sendBucket    string
	sendPathScope string
	sendRecipient string
	sendTTL       time.Duration
	sendLabel     string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Asynchronously deliver a share via the recipient's inbox",
	Long: `HPKE-seal a share envelope to the recipient and write it into the
gateway's inbox namespace at the recipient's key-fingerprint directory
for a recipient who is not online right now. They discover
it later with 'share inbox'.`,
	RunE: runSend,
}

func init() {
	registerConnFlags(sendCmd, &sendFlags)
	sendCmd.Flags().StringVar(&sendInboxBkt, "inbox-bucket", "", "Bucket hosting the shared inbox namespace (required)")
	sendCmd.Flags().StringVar(&sendBucket, "bucket", "", "Bucket to share (required)")
	sendCmd.Flags().StringVar(&sendPathScope, "path", "/", "Path prefix the share grants access to")
	sendCmd.Flags().StringVar(&sendRecipient, "recipient", "", "Recipient's hex-encoded HPKE public key (required)")
	sendCmd.Flags().DurationVar(&sendTTL, "ttl", 0, "Share lifetime (0 = never expires)")
	sendCmd.Flags().StringVar(&sendLabel, "label", "", "Human-readable label shown to the recipient")
	_ = sendCmd.MarkFlagRequired("inbox-bucket")
	_ = sendCmd.MarkFlagRequired("bucket")
	_ = sendCmd.MarkFlagRequired("recipient")
}

func runSend(cmd *cobra.Command, args []string) error {
	c, err := sendFlags.newClient()
	if err != nil {
		return err
	}
	recipient, err := parseRecipient(sendRecipient)
	if err != nil {
		return err
	}

	id, err := c.SendShare(cmd.Context(), sendInboxBkt, sendBucket, sendPathScope, recipient, sendTTL, sendLabel)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "inbox entry %s delivered\n", id)
	return nil
}
