// Package types holds the constants and small value types shared by every
// layer of a block image.
package types

// Image Layout
// An image is a header, followed by the allocation bitmap, followed by
// BlockCount fixed-size blocks. All integers are stored big-endian.

const (
	// BlockSize is the size of every block slot in bytes.
	BlockSize uint64 = 512

	// FileBlockMeta is the number of leading bytes in a block owned by the
	// file layer. The entry counter starts immediately after it.
	FileBlockMeta uint64 = 12

	// EntryCounterSize is the width of the per-block entry counter.
	EntryCounterSize uint64 = 8

	// BlockPayloadOffset is where payload bytes start within a block.
	BlockPayloadOffset = FileBlockMeta + EntryCounterSize

	// BlockPayloadSize is the number of payload bytes in a block.
	BlockPayloadSize = BlockSize - BlockPayloadOffset
)

// Header field offsets, relative to the start of the image.
const (
	// BlockCountOffset is the offset of the uint64 total block count.
	BlockCountOffset uint64 = 0

	// FileCountOffset is the offset of the uint64 running file count.
	FileCountOffset uint64 = 8

	// MagicOffset is the offset of the 4-byte image magic.
	MagicOffset uint64 = 16

	// VersionOffset is the offset of the uint32 layout version.
	VersionOffset uint64 = 20

	// IDOffset is the offset of the 16-byte image identifier.
	IDOffset uint64 = 24

	// HeaderSize is the total size of the header region.
	HeaderSize uint64 = 40
)

const (
	// ImageMagic identifies a formatted image ("BFS1").
	ImageMagic uint32 = 0x42465331

	// LayoutVersion is the only layout version this module reads and writes.
	LayoutVersion uint32 = 1
)

// RootBlock is the reserved root directory block. Its bit is always set.
const RootBlock BlockIndex = 0

// FirstAllocatableBlock is where first-fit allocation starts scanning.
const FirstAllocatableBlock BlockIndex = 1
