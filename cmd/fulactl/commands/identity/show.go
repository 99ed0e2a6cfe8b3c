package identity

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fula-project/gateway/pkg/client"
)

var showPath string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print an identity's public key",
	Long:  `Load an identity file and print its KEK public key, safe to hand to anyone the owner wants to receive a share.`,
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVarP(&showPath, "identity", "i", "", "Path to the identity file (required)")
	_ = showCmd.MarkFlagRequired("identity")
}

func runShow(cmd *cobra.Command, args []string) error {
	mgr, err := client.LoadIdentity(showPath)
	if err != nil {
		return err
	}
	pubBytes, err := mgr.PublicKey().MarshalPublic()
	if err != nil {
		return fmt.Errorf("marshaling public key: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(pubBytes))
	return nil
}
