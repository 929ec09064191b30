package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-bfs/pkg/bfs"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the allocation bitmap",
	Long: `Read the whole allocation bitmap and verify that the root block is
marked used and that no bit past the last block is set.

Examples:
  bfs check --image disk.bfs`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withImage(false, func(img *bfs.Image) error {
			summary, err := img.Check()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Bitmap OK: %d of %d blocks free, next free %s\n",
				summary.Free, img.BlockCount(), summary.Next)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
