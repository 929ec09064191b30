// Package layout maps block indices to byte offsets within an image.
// Every function is pure and safe for concurrent use.
package layout

import (
	"fmt"
	"math"

	"github.com/deploymenttheory/go-bfs/internal/types"
)

// BitmapLength returns the size of the allocation bitmap in bytes.
func BitmapLength(totalBlocks uint64) uint64 {
	length := totalBlocks / 8
	if totalBlocks%8 != 0 {
		length++
	}
	return length
}

// BitmapOffset returns the offset of the first bitmap byte.
func BitmapOffset() uint64 {
	return types.HeaderSize
}

// BlocksOffset returns the offset of block 0.
func BlocksOffset(totalBlocks uint64) uint64 {
	return types.HeaderSize + BitmapLength(totalBlocks)
}

// ImageSize returns the total size of an image of totalBlocks blocks.
func ImageSize(totalBlocks uint64) uint64 {
	return BlocksOffset(totalBlocks) + totalBlocks*types.BlockSize
}

// CheckBlockCount reports whether an image of totalBlocks blocks can exist:
// at least one block, and every byte of it addressable by an int64 offset.
func CheckBlockCount(totalBlocks uint64) error {
	if totalBlocks == 0 {
		return types.ErrInvalidBlockCount
	}
	// The first test keeps ImageSize from wrapping in the second.
	if totalBlocks > (math.MaxInt64-types.HeaderSize)/types.BlockSize || ImageSize(totalBlocks) > math.MaxInt64 {
		return fmt.Errorf("%w: %d blocks", types.ErrImageTooLarge, totalBlocks)
	}
	return nil
}

// OffsetOf returns the byte offset of block index in an image of
// totalBlocks blocks. An index outside 0..totalBlocks-1 is a caller error,
// and so is a block count CheckBlockCount rejects.
func OffsetOf(index types.BlockIndex, totalBlocks uint64) (uint64, error) {
	if !index.Validate(totalBlocks) {
		return 0, fmt.Errorf("%w: block %d, image has %d blocks", types.ErrBlockOutOfRange, index, totalBlocks)
	}
	if err := CheckBlockCount(totalBlocks); err != nil {
		return 0, err
	}
	return BlocksOffset(totalBlocks) + uint64(index)*types.BlockSize, nil
}

// MustOffsetOf is OffsetOf for indices the caller has already validated.
// It panics on an out-of-range index.
func MustOffsetOf(index types.BlockIndex, totalBlocks uint64) uint64 {
	offset, err := OffsetOf(index, totalBlocks)
	if err != nil {
		panic(err)
	}
	return offset
}

// EntryCounterOffset returns the offset of the entry counter inside block index.
func EntryCounterOffset(index types.BlockIndex, totalBlocks uint64) (uint64, error) {
	offset, err := OffsetOf(index, totalBlocks)
	if err != nil {
		return 0, err
	}
	return offset + types.FileBlockMeta, nil
}

// BitLocation returns the bitmap byte offset and bit mask for block index.
func BitLocation(index types.BlockIndex) (byteOffset uint64, mask byte) {
	return BitmapOffset() + uint64(index)/8, 1 << (uint64(index) % 8)
}
