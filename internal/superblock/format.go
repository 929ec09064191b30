package superblock

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-bfs/internal/layout"
	"github.com/deploymenttheory/go-bfs/internal/store"
	"github.com/deploymenttheory/go-bfs/internal/types"
)

// zeroChunkBlocks is how many blocks Format zeroes per write.
const zeroChunkBlocks = 128

// Format writes the header of a fresh image of totalBlocks blocks to s, with
// a file count of 0 and a new ID, and zeroes the bitmap and block regions.
// The caller initialises the bitmap afterwards so that the root block is
// marked used.
func Format(s store.Store, totalBlocks uint64) (*Header, error) {
	if err := layout.CheckBlockCount(totalBlocks); err != nil {
		return nil, err
	}

	h := &Header{
		BlockCount: totalBlocks,
		FileCount:  0,
		Magic:      types.ImageMagic,
		Version:    types.LayoutVersion,
		ID:         uuid.New(),
	}
	if err := store.WriteAt(s, 0, h.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	zeros := make([]byte, zeroChunkBlocks*types.BlockSize)
	length := layout.BitmapLength(totalBlocks)
	for start := uint64(0); start < length; start += uint64(len(zeros)) {
		n := min(uint64(len(zeros)), length-start)
		if err := store.WriteAt(s, layout.BitmapOffset()+start, zeros[:n]); err != nil {
			return nil, fmt.Errorf("failed to clear bitmap: %w", err)
		}
	}

	for start := uint64(0); start < totalBlocks; start += zeroChunkBlocks {
		n := min(uint64(zeroChunkBlocks), totalBlocks-start)
		offset := layout.MustOffsetOf(types.BlockIndex(start), totalBlocks)
		if err := store.WriteAt(s, offset, zeros[:n*types.BlockSize]); err != nil {
			return nil, fmt.Errorf("failed to zero blocks %d-%d: %w", start, start+n-1, err)
		}
	}

	return h, nil
}
