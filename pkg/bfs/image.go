// Package bfs is the caller-facing handle on a block image. It ties the
// header, allocation bitmap and block metadata together behind one value
// per open image.
//
// An Image is not safe for concurrent use. Callers that share one must
// serialise access with their own lock.
package bfs

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-bfs/internal/bitmap"
	"github.com/deploymenttheory/go-bfs/internal/blockmeta"
	"github.com/deploymenttheory/go-bfs/internal/layout"
	"github.com/deploymenttheory/go-bfs/internal/store"
	"github.com/deploymenttheory/go-bfs/internal/superblock"
	"github.com/deploymenttheory/go-bfs/internal/types"
)

// Re-exported so callers outside this module can name results.
type (
	BlockIndex    = types.BlockIndex
	OptionalBlock = types.OptionalBlock
	Mode          = store.Mode
	Store         = store.Store
	BitmapSummary = bitmap.Summary
)

const (
	ReadOnly  = store.ReadOnly
	ReadWrite = store.ReadWrite
)

var (
	ErrBlockOutOfRange    = types.ErrBlockOutOfRange
	ErrInvalidBlockCount  = types.ErrInvalidBlockCount
	ErrImageTooLarge      = types.ErrImageTooLarge
	ErrCounterUnderflow   = types.ErrCounterUnderflow
	ErrBadMagic           = superblock.ErrBadMagic
	ErrUnsupportedVersion = superblock.ErrUnsupportedVersion
	ErrCorruptBitmap      = bitmap.ErrCorrupt
	ErrUnsupportedMode    = store.ErrUnsupportedMode
	ErrReadOnly           = store.ErrReadOnly
)

// Image is an open block image.
type Image struct {
	store       store.Store
	totalBlocks uint64
	id          uuid.UUID
	logger      *slog.Logger
}

// Create formats a new image of totalBlocks blocks at path, replacing any
// file already there.
func Create(path string, totalBlocks uint64, opts ...Option) (err error) {
	o := newOptions(opts)
	if err := layout.CheckBlockCount(totalBlocks); err != nil {
		return err
	}

	f, err := store.Create(path, layout.ImageSize(totalBlocks))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close %s: %w", path, cerr))
		}
	}()

	h, err := format(f, totalBlocks)
	if err != nil {
		return fmt.Errorf("failed to format %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}

	o.logger.Info("formatted image",
		slog.String("path", path),
		slog.Uint64("blocks", totalBlocks),
		slog.String("id", h.ID.String()))
	return nil
}

// Format writes a fresh image of totalBlocks blocks to s and returns it
// open. The Image takes ownership of s and closes it on Close.
func Format(s store.Store, totalBlocks uint64, opts ...Option) (*Image, error) {
	h, err := format(s, totalBlocks)
	if err != nil {
		return nil, err
	}

	img := &Image{
		store:       s,
		totalBlocks: h.BlockCount,
		id:          h.ID,
		logger:      newOptions(opts).logger,
	}
	img.logger.Info("formatted image",
		slog.Uint64("blocks", totalBlocks),
		slog.String("id", h.ID.String()))
	return img, nil
}

// format writes the header, the bitmap with the root block used and zeroed
// blocks.
func format(s store.Store, totalBlocks uint64) (*superblock.Header, error) {
	h, err := superblock.Format(s, totalBlocks)
	if err != nil {
		return nil, err
	}
	if err := bitmap.Init(s, totalBlocks); err != nil {
		return nil, err
	}
	return h, nil
}

// Open opens the image at path and validates its header. The caller must
// Close the returned Image.
func Open(path string, mode Mode, opts ...Option) (*Image, error) {
	f, err := store.Open(path, mode)
	if err != nil {
		return nil, err
	}

	img, err := New(f, opts...)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	img.logger.Info("opened image",
		slog.String("path", path),
		slog.String("mode", mode.String()),
		slog.Uint64("blocks", img.totalBlocks))
	return img, nil
}

// New wraps an already-open store. The Image takes ownership of s and
// closes it on Close.
func New(s store.Store, opts ...Option) (*Image, error) {
	o := newOptions(opts)

	h, err := superblock.ReadHeader(s)
	if err != nil {
		return nil, err
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}

	return &Image{
		store:       s,
		totalBlocks: h.BlockCount,
		id:          h.ID,
		logger:      o.logger,
	}, nil
}

// Close releases the underlying store.
func (img *Image) Close() error {
	img.logger.Debug("closing image", slog.String("id", img.id.String()))
	return img.store.Close()
}

// BlockCount returns the total number of blocks, fixed at format time.
func (img *Image) BlockCount() uint64 {
	return img.totalBlocks
}

// ID returns the identifier generated when the image was formatted.
func (img *Image) ID() uuid.UUID {
	return img.id
}

// FileCount returns the running file count stored in the header.
func (img *Image) FileCount() (uint64, error) {
	return superblock.FileCount(img.store)
}

// IncrementFileCount adds one to the file count and returns the new value.
func (img *Image) IncrementFileCount() (uint64, error) {
	return superblock.IncrementFileCount(img.store)
}

// DecrementFileCount subtracts one from the file count and returns the new value.
func (img *Image) DecrementFileCount() (uint64, error) {
	return superblock.DecrementFileCount(img.store)
}

// OffsetOf returns the byte offset of block index.
func (img *Image) OffsetOf(index BlockIndex) (uint64, error) {
	return layout.OffsetOf(index, img.totalBlocks)
}

// NextAvailableBlock returns the lowest free block without claiming it.
func (img *Image) NextAvailableBlock() (OptionalBlock, error) {
	return bitmap.NextAvailableBlock(img.store)
}

// Allocate claims the lowest free block. An empty result means the image
// is full.
func (img *Image) Allocate() (OptionalBlock, error) {
	next, err := bitmap.NextAvailableBlock(img.store)
	if err != nil {
		return types.NoBlock(), err
	}
	index, ok := next.Get()
	if !ok {
		img.logger.Debug("no free block", slog.Uint64("blocks", img.totalBlocks))
		return next, nil
	}
	if err := bitmap.SetBlockInUse(img.store, index, img.totalBlocks, true); err != nil {
		return types.NoBlock(), err
	}
	img.logger.Debug("allocated block", slog.Uint64("block", uint64(index)))
	return next, nil
}

// SetBlockInUse marks index used or free.
func (img *Image) SetBlockInUse(index BlockIndex, inUse bool) error {
	return bitmap.SetBlockInUse(img.store, index, img.totalBlocks, inUse)
}

// Free returns index to the pool of free blocks.
func (img *Image) Free(index BlockIndex) error {
	if err := bitmap.SetBlockInUse(img.store, index, img.totalBlocks, false); err != nil {
		return err
	}
	img.logger.Debug("freed block", slog.Uint64("block", uint64(index)))
	return nil
}

// IsBlockInUse reports whether index is marked used.
func (img *Image) IsBlockInUse(index BlockIndex) (bool, error) {
	return bitmap.IsBlockInUse(img.store, index, img.totalBlocks)
}

// FreeBlockCount returns the number of free blocks.
func (img *Image) FreeBlockCount() (uint64, error) {
	return bitmap.FreeBlockCount(img.store)
}

// Check reads the whole allocation bitmap and verifies that the root block
// is marked used and no padding bit is set. It fails with ErrCorruptBitmap
// otherwise.
func (img *Image) Check() (BitmapSummary, error) {
	summary, err := bitmap.Verify(img.store, img.totalBlocks)
	if err != nil {
		img.logger.Warn("bitmap check failed", slog.String("id", img.id.String()), slog.Any("error", err))
		return BitmapSummary{}, err
	}
	return summary, nil
}

// EntryCount returns the entry counter of block index.
func (img *Image) EntryCount(index BlockIndex) (uint64, error) {
	return blockmeta.EntryCount(img.store, index, img.totalBlocks)
}

// SetEntryCount overwrites the entry counter of block index.
func (img *Image) SetEntryCount(index BlockIndex, count uint64) error {
	return blockmeta.SetEntryCount(img.store, index, img.totalBlocks, count)
}

// IncrementEntryCount adds one to the entry counter of block index.
func (img *Image) IncrementEntryCount(index BlockIndex) (uint64, error) {
	return blockmeta.IncrementEntryCount(img.store, index, img.totalBlocks)
}

// DecrementEntryCount subtracts one from the entry counter of block index.
func (img *Image) DecrementEntryCount(index BlockIndex) (uint64, error) {
	return blockmeta.DecrementEntryCount(img.store, index, img.totalBlocks)
}
