// Package blockmeta reads and writes the entry counter stored in each block.
//
// A block starts with types.FileBlockMeta bytes owned by the file layer,
// followed by an 8-byte entry counter. For a directory block the counter is
// the number of child entries; for any other block it is 0.
package blockmeta

import (
	"fmt"

	"github.com/deploymenttheory/go-bfs/internal/codec"
	"github.com/deploymenttheory/go-bfs/internal/layout"
	"github.com/deploymenttheory/go-bfs/internal/store"
	"github.com/deploymenttheory/go-bfs/internal/types"
)

// EntryCount returns the entry counter of block index.
func EntryCount(s store.Store, index types.BlockIndex, totalBlocks uint64) (uint64, error) {
	offset, err := layout.EntryCounterOffset(index, totalBlocks)
	if err != nil {
		return 0, err
	}
	data, err := store.ReadAt(s, offset, codec.Uint64Size)
	if err != nil {
		return 0, fmt.Errorf("failed to read entry count of block %d: %w", index, err)
	}
	return codec.DecodeUint64(data)
}

// SetEntryCount overwrites the entry counter of block index. The metadata
// and payload around it are left untouched.
func SetEntryCount(s store.Store, index types.BlockIndex, totalBlocks uint64, count uint64) error {
	offset, err := layout.EntryCounterOffset(index, totalBlocks)
	if err != nil {
		return err
	}
	encoded := codec.EncodeUint64(count)
	if err := store.WriteAt(s, offset, encoded[:]); err != nil {
		return fmt.Errorf("failed to write entry count of block %d: %w", index, err)
	}
	return nil
}

// IncrementEntryCount adds one to the entry counter and returns the new value.
func IncrementEntryCount(s store.Store, index types.BlockIndex, totalBlocks uint64) (uint64, error) {
	count, err := EntryCount(s, index, totalBlocks)
	if err != nil {
		return 0, err
	}
	count++
	if err := SetEntryCount(s, index, totalBlocks, count); err != nil {
		return 0, err
	}
	return count, nil
}

// DecrementEntryCount subtracts one from the entry counter and returns the
// new value. It fails with types.ErrCounterUnderflow when the counter is 0.
func DecrementEntryCount(s store.Store, index types.BlockIndex, totalBlocks uint64) (uint64, error) {
	count, err := EntryCount(s, index, totalBlocks)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, fmt.Errorf("entry count of block %d: %w", index, types.ErrCounterUnderflow)
	}
	count--
	if err := SetEntryCount(s, index, totalBlocks, count); err != nil {
		return 0, err
	}
	return count, nil
}
