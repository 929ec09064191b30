package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-bfs/pkg/bfs"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show block count, file count and free space",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withImage(false, func(img *bfs.Image) error {
			files, err := img.FileCount()
			if err != nil {
				return err
			}
			free, err := img.FreeBlockCount()
			if err != nil {
				return err
			}
			next, err := img.NextAvailableBlock()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Image:       %s\n", cfg.Image)
			fmt.Fprintf(out, "ID:          %s\n", img.ID())
			fmt.Fprintf(out, "Blocks:      %d\n", img.BlockCount())
			fmt.Fprintf(out, "Files:       %d\n", files)
			fmt.Fprintf(out, "Free blocks: %d\n", free)
			fmt.Fprintf(out, "Next free:   %s\n", next)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
