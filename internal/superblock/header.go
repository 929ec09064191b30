// Package superblock reads and writes the fixed header at the start of an
// image: the total block count, the running file count and the fields that
// identify the image.
package superblock

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-bfs/internal/codec"
	"github.com/deploymenttheory/go-bfs/internal/layout"
	"github.com/deploymenttheory/go-bfs/internal/types"
)

var (
	// ErrBadMagic is returned when the header does not start a BFS image.
	ErrBadMagic = errors.New("image magic mismatch")

	// ErrUnsupportedVersion is returned for a layout version this module
	// does not understand.
	ErrUnsupportedVersion = errors.New("unsupported layout version")
)

// Header is the decoded image header.
type Header struct {
	// Number of blocks in the image. Fixed at format time.
	BlockCount uint64

	// Running count of file entries across the image.
	FileCount uint64

	// Image magic, types.ImageMagic for a formatted image.
	Magic uint32

	// Layout version, types.LayoutVersion for a formatted image.
	Version uint32

	// Identifier generated when the image was formatted.
	ID uuid.UUID
}

// ParseHeader decodes a header from data.
func ParseHeader(data []byte) (*Header, error) {
	if uint64(len(data)) < types.HeaderSize {
		return nil, fmt.Errorf("data too small for header: %d bytes, need at least %d", len(data), types.HeaderSize)
	}

	h := &Header{
		BlockCount: codec.ByteOrder.Uint64(data[types.BlockCountOffset : types.BlockCountOffset+codec.Uint64Size]),
		FileCount:  codec.ByteOrder.Uint64(data[types.FileCountOffset : types.FileCountOffset+codec.Uint64Size]),
		Magic:      codec.ByteOrder.Uint32(data[types.MagicOffset : types.MagicOffset+codec.Uint32Size]),
		Version:    codec.ByteOrder.Uint32(data[types.VersionOffset : types.VersionOffset+codec.Uint32Size]),
	}
	copy(h.ID[:], data[types.IDOffset:types.IDOffset+16])

	return h, nil
}

// Bytes returns the encoded header.
func (h *Header) Bytes() []byte {
	data := make([]byte, types.HeaderSize)

	blockCount := codec.EncodeUint64(h.BlockCount)
	fileCount := codec.EncodeUint64(h.FileCount)
	magic := codec.EncodeUint32(h.Magic)
	version := codec.EncodeUint32(h.Version)

	copy(data[types.BlockCountOffset:], blockCount[:])
	copy(data[types.FileCountOffset:], fileCount[:])
	copy(data[types.MagicOffset:], magic[:])
	copy(data[types.VersionOffset:], version[:])
	copy(data[types.IDOffset:], h.ID[:])

	return data
}

// Validate checks that the header describes an image this module can open.
// It does not cross-check the bitmap against the blocks.
func (h *Header) Validate() error {
	if h.Magic != types.ImageMagic {
		return fmt.Errorf("%w: got 0x%08x, want 0x%08x", ErrBadMagic, h.Magic, types.ImageMagic)
	}
	if h.Version != types.LayoutVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	return layout.CheckBlockCount(h.BlockCount)
}

// String returns a human-readable representation of the header.
func (h *Header) String() string {
	return fmt.Sprintf("Header{Blocks: %d, Files: %d, Version: %d, ID: %s}",
		h.BlockCount, h.FileCount, h.Version, h.ID)
}
