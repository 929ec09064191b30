package bitmap

import (
	"fmt"

	"github.com/deploymenttheory/go-bfs/internal/codec"
	"github.com/deploymenttheory/go-bfs/internal/layout"
	"github.com/deploymenttheory/go-bfs/internal/store"
	"github.com/deploymenttheory/go-bfs/internal/types"
)

// scanChunkSize bounds how much of the bitmap is held in memory per read.
const scanChunkSize = 4096

// NextAvailableBlock returns the lowest free block of the image in s,
// scanning upward from block 1. An empty result means the image is full.
func NextAvailableBlock(s store.Store) (types.OptionalBlock, error) {
	totalBlocks, err := readBlockCount(s)
	if err != nil {
		return types.NoBlock(), err
	}

	var found types.OptionalBlock
	err = scanChunks(s, totalBlocks, func(chunk []byte, firstBit uint64) bool {
		if index, ok := firstZeroBit(chunk, firstBit, totalBlocks); ok {
			found = types.SomeBlock(index)
			return false
		}
		return true
	})
	if err != nil {
		return types.NoBlock(), err
	}
	return found, nil
}

// FreeBlockCount returns how many blocks of the image in s are free.
func FreeBlockCount(s store.Store) (uint64, error) {
	totalBlocks, err := readBlockCount(s)
	if err != nil {
		return 0, err
	}

	var free uint64
	err = scanChunks(s, totalBlocks, func(chunk []byte, firstBit uint64) bool {
		free += countZeroBits(chunk, firstBit, totalBlocks)
		return true
	})
	if err != nil {
		return 0, err
	}
	return free, nil
}

// SetBlockInUse marks block index used when inUse is true and free when it
// is false. Only the byte holding the bit is read and rewritten. The root
// block and indices past the end are rejected with types.ErrBlockOutOfRange.
func SetBlockInUse(s store.Store, index types.BlockIndex, totalBlocks uint64, inUse bool) error {
	if !index.Allocatable(totalBlocks) {
		return fmt.Errorf("%w: cannot change bit of block %d in image of %d blocks",
			types.ErrBlockOutOfRange, index, totalBlocks)
	}

	offset, mask := layout.BitLocation(index)
	current, err := store.ReadAt(s, offset, 1)
	if err != nil {
		return fmt.Errorf("failed to read bitmap byte for block %d: %w", index, err)
	}

	updated := current[0] &^ mask
	if inUse {
		updated = current[0] | mask
	}
	if updated == current[0] {
		return nil
	}

	if err := store.WriteAt(s, offset, []byte{updated}); err != nil {
		return fmt.Errorf("failed to write bitmap byte for block %d: %w", index, err)
	}
	return nil
}

// IsBlockInUse reports whether block index is marked used. The root block
// always reports true.
func IsBlockInUse(s store.Store, index types.BlockIndex, totalBlocks uint64) (bool, error) {
	if !index.Validate(totalBlocks) {
		return false, fmt.Errorf("%w: block %d, image has %d blocks", types.ErrBlockOutOfRange, index, totalBlocks)
	}
	if index == types.RootBlock {
		return true, nil
	}

	offset, mask := layout.BitLocation(index)
	current, err := store.ReadAt(s, offset, 1)
	if err != nil {
		return false, fmt.Errorf("failed to read bitmap byte for block %d: %w", index, err)
	}
	return current[0]&mask != 0, nil
}

// Summary describes the allocation state found by Verify.
type Summary struct {
	// Free is the number of free blocks in 1..totalBlocks-1.
	Free uint64

	// Next is the block NextAvailableBlock would return.
	Next types.OptionalBlock
}

// Verify loads the whole bitmap of an image of totalBlocks blocks and checks
// that the root block is marked used and every padding bit is clear. The
// bitmap is read as one piece, so memory use grows with the image.
func Verify(s store.Store, totalBlocks uint64) (Summary, error) {
	b, err := Load(s, totalBlocks)
	if err != nil {
		return Summary{}, err
	}

	root, err := b.IsSet(types.RootBlock)
	if err != nil {
		return Summary{}, err
	}
	if !root {
		return Summary{}, fmt.Errorf("%w: root block is marked free", ErrCorrupt)
	}
	if b.paddingSet() {
		return Summary{}, fmt.Errorf("%w: bits past block %d are set", ErrCorrupt, totalBlocks-1)
	}

	return Summary{Free: b.FreeCount(), Next: b.FirstFree()}, nil
}

// scanChunks feeds the bitmap to fn in chunks of at most scanChunkSize
// bytes, stopping early when fn returns false.
func scanChunks(s store.Store, totalBlocks uint64, fn func(chunk []byte, firstBit uint64) bool) error {
	length := layout.BitmapLength(totalBlocks)
	for start := uint64(0); start < length; start += scanChunkSize {
		n := min(uint64(scanChunkSize), length-start)
		chunk, err := store.ReadAt(s, layout.BitmapOffset()+start, int(n))
		if err != nil {
			return fmt.Errorf("failed to scan bitmap: %w", err)
		}
		if !fn(chunk, start*8) {
			return nil
		}
	}
	return nil
}

func readBlockCount(s store.Store) (uint64, error) {
	data, err := store.ReadAt(s, types.BlockCountOffset, codec.Uint64Size)
	if err != nil {
		return 0, fmt.Errorf("failed to read block count: %w", err)
	}
	totalBlocks, err := codec.DecodeUint64(data)
	if err != nil {
		return 0, err
	}
	if err := layout.CheckBlockCount(totalBlocks); err != nil {
		return 0, fmt.Errorf("invalid block count in header: %w", err)
	}
	return totalBlocks, nil
}
