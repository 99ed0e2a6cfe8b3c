package object

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	rmFlags  connFlags
	rmBucket string
	rmKey    string
)

var rmCmd = &cobra.Command{
	Use:   "rm",
	Short: "Remove an object's chunks, manifest, and forest entry",
	RunE:  runRm,
}

func init() {
	registerConnFlags(rmCmd, &rmFlags)
	rmCmd.Flags().StringVar(&rmBucket, "bucket", "", "Bucket to remove from (required)")
	rmCmd.Flags().StringVar(&rmKey, "path", "", "Object path to remove (required)")
	_ = rmCmd.MarkFlagRequired("bucket")
	_ = rmCmd.MarkFlagRequired("path")
}

func runRm(cmd *cobra.Command, args []string) error {
	c, err := rmFlags.newClient()
	if err != nil {
		return err
	}
	if err := c.DeleteObject(cmd.Context(), rmBucket, rmKey); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %s:%s\n", rmBucket, rmKey)
	return nil
}
