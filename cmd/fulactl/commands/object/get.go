package object

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	getFlags  connFlags
	getBucket string
	getKey    string
	getOut    string
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Download and decrypt an object",
	Long: `Fetch an object's ciphertext chunks and manifest, verify its Bao root
hash, decrypt under the bucket's forest DEK, and write the resulting
plaintext to --out (or stdout).`,
	RunE: runGet,
}

func init() {
	registerConnFlags(getCmd, &getFlags)
	getCmd.Flags().StringVar(&getBucket, "bucket", "", "Source bucket (required)")
	getCmd.Flags().StringVar(&getKey, "path", "", "Object path within the bucket's forest (required)")
	getCmd.Flags().StringVar(&getOut, "out", "", "Local file to write (default: stdout)")
	_ = getCmd.MarkFlagRequired("bucket")
	_ = getCmd.MarkFlagRequired("path")
}

func runGet(cmd *cobra.Command, args []string) error {
	c, err := getFlags.newClient()
	if err != nil {
		return err
	}

	plaintext, err := c.GetObject(cmd.Context(), getBucket, getKey)
	if err != nil {
		return err
	}

	if getOut == "" {
		_, err := cmd.OutOrStdout().Write(plaintext)
		return err
	}
	if err := os.WriteFile(getOut, plaintext, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", getOut, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bytes to %s\n", len(plaintext), getOut)
	return nil
}
