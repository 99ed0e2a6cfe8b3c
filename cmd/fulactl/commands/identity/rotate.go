package identity

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fula-project/gateway/pkg/client"
)

var (
	rotateIdentityPath string
	rotateKeyringPath  string
	rotateBatchOnly    bool
	rotateClear        bool
)

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Rotate the owner's KEK and rewrap tracked DEKs",
	Long: `Start or continue a key-encrypting-key rotation over the keyring's
tracked files. A fresh KEK keypair replaces the current one and every
tracked data-encryption key is rewrapped under it; the old KEK is retained
until the last DEK has been rewrapped, so an interrupted rotation can be
resumed by running this command again.

With --batch, only one batch of DEKs is rewrapped per invocation, bounding
how long a single run holds the keyring file open. With --clear-previous,
the retained old KEK is dropped once rotation is complete; any wrapped DEK
somehow still at the old version becomes unrecoverable.`,
	RunE: runRotate,
}

func init() {
	rotateCmd.Flags().StringVarP(&rotateIdentityPath, "identity", "i", "", "Path to the identity file (required)")
	rotateCmd.Flags().StringVarP(&rotateKeyringPath, "keyring", "k", "", "Path to the keyring file (required)")
	rotateCmd.Flags().BoolVar(&rotateBatchOnly, "batch", false, "Rewrap a single batch instead of running to completion")
	rotateCmd.Flags().BoolVar(&rotateClear, "clear-previous", false, "Drop the previous KEK once rotation is complete")
	_ = rotateCmd.MarkFlagRequired("identity")
	_ = rotateCmd.MarkFlagRequired("keyring")
}

func runRotate(cmd *cobra.Command, args []string) error {
	mgr, err := client.LoadIdentity(rotateIdentityPath)
	if err != nil {
		return err
	}

	var keyring *client.Keyring
	if _, err := os.Stat(rotateKeyringPath); err == nil {
		keyring, err = client.LoadKeyring(rotateKeyringPath, mgr)
		if err != nil {
			return err
		}
	} else {
		keyring = client.NewKeyring(mgr)
	}

	if keyring.IsRotationComplete() {
		// Nothing mid-flight: this invocation starts a new rotation.
		if _, err := keyring.RotateKEK(); err != nil {
			return fmt.Errorf("rotating KEK: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "KEK rotated to version %d\n", keyring.KEKVersion())
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "resuming rotation to version %d\n", keyring.KEKVersion())
	}

	var rotated, failed int
	if rotateBatchOnly {
		result := keyring.RotateBatch()
		rotated, failed = result.RotatedCount, result.FailedCount
		for _, f := range result.Failures {
			fmt.Fprintf(cmd.ErrOrStderr(), "failed to rewrap %s: %s\n", f.Path, f.Error)
		}
	} else {
		result := keyring.RotateAll()
		rotated, failed = result.RotatedCount, result.FailedCount
		for _, f := range result.Failures {
			fmt.Fprintf(cmd.ErrOrStderr(), "failed to rewrap %s: %s\n", f.Path, f.Error)
		}
	}

	done, total := keyring.RotationProgress()
	fmt.Fprintf(cmd.OutOrStdout(), "rewrapped %d key(s), %d failure(s); %d/%d at current version\n", rotated, failed, done, total)

	if rotateClear && keyring.IsRotationComplete() {
		keyring.ClearPreviousKEK()
		fmt.Fprintln(cmd.OutOrStdout(), "previous KEK cleared")
	}

	return client.SaveKeyring(rotateKeyringPath, keyring)
}
