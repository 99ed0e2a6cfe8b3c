package object

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	putFlags       connFlags
	putBucket      string
	putKey         string
	putFile        string
	putContentType string
)

var putCmd = &cobra.Command{
	Use:   "put",
	Short: "Encrypt a local file and upload it",
	Long: `Chunk and AEAD-encrypt a local file under the bucket's forest DEK, upload
the ciphertext chunks and manifest, and record the file in the bucket's
encrypted private forest. The gateway only ever receives ciphertext.`,
	RunE: runPut,
}

func init() {
	registerConnFlags(putCmd, &putFlags)
	putCmd.Flags().StringVar(&putBucket, "bucket", "", "Target bucket (required)")
	putCmd.Flags().StringVar(&putKey, "path", "", "Object path within the bucket's forest (default: the file's base name)")
	putCmd.Flags().StringVar(&putFile, "file", "", "Local file to upload (required)")
	putCmd.Flags().StringVar(&putContentType, "content-type", "", "Content type to record (default: inferred from the file extension)")
	_ = putCmd.MarkFlagRequired("bucket")
	_ = putCmd.MarkFlagRequired("file")
}

func runPut(cmd *cobra.Command, args []string) error {
	c, err := putFlags.newClient()
	if err != nil {
		return err
	}

	path := putKey
	if path == "" {
		path = filepath.Base(putFile)
	}
	contentType := putContentType
	if contentType == "" {
		if ct := mime.TypeByExtension(filepath.Ext(putFile)); ct != "" {
			contentType = ct
		} else {
			contentType = "application/octet-stream"
		}
	}

	f, err := os.Open(putFile)
	if err != nil {
		return fmt.Errorf("opening %s: %w", putFile, err)
	}
	defer f.Close()

	if err := c.PutObject(cmd.Context(), putBucket, path, f, contentType); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s to %s:%s\n", putFile, putBucket, path)
	return nil
}
