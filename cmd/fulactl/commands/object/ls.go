package object

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	lsFlags  connFlags
	lsBucket string
	lsPrefix string
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List objects recorded in a bucket's forest",
	RunE:  runLs,
}

func init() {
	registerConnFlags(lsCmd, &lsFlags)
	lsCmd.Flags().StringVar(&lsBucket, "bucket", "", "Bucket to list (required)")
	lsCmd.Flags().StringVar(&lsPrefix, "prefix", "", "Only list paths under this prefix")
	_ = lsCmd.MarkFlagRequired("bucket")
}

func runLs(cmd *cobra.Command, args []string) error {
	c, err := lsFlags.newClient()
	if err != nil {
		return err
	}

	entries, err := c.ListObjects(cmd.Context(), lsBucket, lsPrefix)
	if err != nil {
		return err
	}
	for _, e := range entries {
		modified := time.Unix(e.ModifiedAt, 0).UTC().Format(time.RFC3339)
		fmt.Fprintf(cmd.OutOrStdout(), "%10d  %s  %s\n", e.Size, modified, e.Path)
	}
	return nil
}
