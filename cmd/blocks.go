package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-bfs/pkg/bfs"
)

// errImageFull is returned by alloc when no block is free.
var errImageFull = errors.New("no space: every block is in use")

var (
	// entries command only
	entriesSet uint64
)

var allocCmd = &cobra.Command{
	Use:   "alloc",
	Short: "Claim the lowest free block",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withImage(true, func(img *bfs.Image) error {
			got, err := img.Allocate()
			if err != nil {
				return err
			}
			index, ok := got.Get()
			if !ok {
				return errImageFull
			}
			fmt.Fprintln(cmd.OutOrStdout(), index)
			return nil
		})
	},
}

var freeCmd = &cobra.Command{
	Use:   "free <block>",
	Short: "Release a block",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseBlockIndex(args[0])
		if err != nil {
			return err
		}
		return withImage(true, func(img *bfs.Image) error {
			return img.Free(index)
		})
	},
}

var entriesCmd = &cobra.Command{
	Use:   "entries <block>",
	Short: "Read or set a block's entry counter",
	Long: `Read or set the entry counter of a block.

Examples:
  # Number of entries in the root directory
  bfs entries 0 --image disk.bfs

  # Reset the counter of block 12
  bfs entries 12 --set 0 --image disk.bfs`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseBlockIndex(args[0])
		if err != nil {
			return err
		}

		set := cmd.Flags().Changed("set")

		return withImage(set, func(img *bfs.Image) error {
			if set {
				if err := img.SetEntryCount(index, entriesSet); err != nil {
					return err
				}
			}
			count, err := img.EntryCount(index)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), count)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(allocCmd, freeCmd, entriesCmd)
	entriesCmd.Flags().Uint64Var(&entriesSet, "set", 0, "new value for the counter")
}

func parseBlockIndex(s string) (bfs.BlockIndex, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid block index %q: %w", s, err)
	}
	return bfs.BlockIndex(v), nil
}
