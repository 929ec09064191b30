package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-bfs/pkg/bfs"
)

var formatBlocks uint64

var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Create a fresh image",
	Long: `Create a fresh image, replacing any file at the path.

Examples:
  # Create a 2048 block image
  bfs format --image disk.bfs --blocks 2048`,

	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Image == "" {
			return errNoImage
		}
		blocks := cfg.DefaultBlocks
		if cmd.Flags().Changed("blocks") {
			blocks = formatBlocks
		}
		if err := bfs.Create(cfg.Image, blocks, bfs.WithLogger(logger)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "formatted %s with %d blocks\n", cfg.Image, blocks)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formatCmd)
	formatCmd.Flags().Uint64VarP(&formatBlocks, "blocks", "b", 0, "number of blocks (default: default_blocks from config)")
}
