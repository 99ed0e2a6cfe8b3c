package identity

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fula-project/gateway/pkg/client"
	"github.com/fula-project/gateway/pkg/crypto/keys"
)

var initOutput string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a new owner identity (KEK keypair + master secret)",
	Long: `Generate a fresh owner identity: a long-term KEM keypair and a random
master secret. The resulting file is the single piece of key material that
makes every object this owner stores recoverable; back it up accordingly.

Anyone who can read --output can decrypt everything stored under this
identity. fula-gateway itself never sees or stores it.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "", "Path to write the identity file (required)")
	_ = initCmd.MarkFlagRequired("output")
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(initOutput); err == nil {
		return fmt.Errorf("%s already exists; refusing to overwrite an existing identity", initOutput)
	}
	if dir := filepath.Dir(initOutput); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	mgr, err := keys.Generate()
	if err != nil {
		return fmt.Errorf("generating identity: %w", err)
	}
	if err := client.SaveIdentity(initOutput, mgr); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "identity written to %s\n", initOutput)
	fmt.Fprintln(cmd.ErrOrStderr(), "back this file up: losing it makes every object stored under it unrecoverable")
	return nil
}
