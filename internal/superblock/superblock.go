package superblock

import (
	"fmt"

	"github.com/deploymenttheory/go-bfs/internal/codec"
	"github.com/deploymenttheory/go-bfs/internal/layout"
	"github.com/deploymenttheory/go-bfs/internal/store"
	"github.com/deploymenttheory/go-bfs/internal/types"
)

// ReadHeader reads and decodes the header of the image in s.
func ReadHeader(s store.Store) (*Header, error) {
	data, err := store.ReadAt(s, 0, int(types.HeaderSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	return ParseHeader(data)
}

// BlockCount returns the total number of blocks in the image.
func BlockCount(s store.Store) (uint64, error) {
	return readUint64(s, types.BlockCountOffset, "block count")
}

// FileCount returns the running file count of the image.
func FileCount(s store.Store) (uint64, error) {
	return readUint64(s, types.FileCountOffset, "file count")
}

// SetFileCount overwrites the running file count.
func SetFileCount(s store.Store, count uint64) error {
	encoded := codec.EncodeUint64(count)
	if err := store.WriteAt(s, types.FileCountOffset, encoded[:]); err != nil {
		return fmt.Errorf("failed to write file count: %w", err)
	}
	return nil
}

// IncrementFileCount adds one to the file count and returns the new value.
func IncrementFileCount(s store.Store) (uint64, error) {
	count, err := FileCount(s)
	if err != nil {
		return 0, err
	}
	count++
	if err := SetFileCount(s, count); err != nil {
		return 0, err
	}
	return count, nil
}

// DecrementFileCount subtracts one from the file count and returns the new
// value. It fails with types.ErrCounterUnderflow when the count is 0.
func DecrementFileCount(s store.Store) (uint64, error) {
	count, err := FileCount(s)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, fmt.Errorf("file count: %w", types.ErrCounterUnderflow)
	}
	count--
	if err := SetFileCount(s, count); err != nil {
		return 0, err
	}
	return count, nil
}

// OffsetOfFileBlock returns the byte offset of block index.
func OffsetOfFileBlock(index types.BlockIndex, totalBlocks uint64) (uint64, error) {
	return layout.OffsetOf(index, totalBlocks)
}

func readUint64(s store.Store, offset uint64, field string) (uint64, error) {
	data, err := store.ReadAt(s, offset, codec.Uint64Size)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", field, err)
	}
	return codec.DecodeUint64(data)
}
