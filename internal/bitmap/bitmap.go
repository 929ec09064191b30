// Package bitmap tracks which blocks of an image are in use.
//
// Bit i of the bitmap is bit i%8 (least significant first) of byte i/8.
// A set bit means the block is used. Block 0 is the root directory block
// and is never handed out.
package bitmap

import (
	"errors"
	"fmt"

	"github.com/deploymenttheory/go-bfs/internal/layout"
	"github.com/deploymenttheory/go-bfs/internal/store"
	"github.com/deploymenttheory/go-bfs/internal/types"
)

// ErrCorrupt is returned by Verify when the bitmap breaks a layout rule.
var ErrCorrupt = errors.New("allocation bitmap is corrupt")

// Bitmap is an in-memory copy of the allocation bitmap of an image of a
// fixed number of blocks. Every accessor is bounds-checked against it.
type Bitmap struct {
	bits        []byte
	totalBlocks uint64
}

// New returns the bitmap of a freshly formatted image: every block free
// except the root block.
func New(totalBlocks uint64) (*Bitmap, error) {
	if err := layout.CheckBlockCount(totalBlocks); err != nil {
		return nil, err
	}
	b := &Bitmap{
		bits:        make([]byte, layout.BitmapLength(totalBlocks)),
		totalBlocks: totalBlocks,
	}
	if err := b.Set(types.RootBlock); err != nil {
		return nil, err
	}
	return b, nil
}

// Load reads the bitmap of an image of totalBlocks blocks from s.
func Load(s store.Store, totalBlocks uint64) (*Bitmap, error) {
	if err := layout.CheckBlockCount(totalBlocks); err != nil {
		return nil, err
	}
	data, err := store.ReadAt(s, layout.BitmapOffset(), int(layout.BitmapLength(totalBlocks)))
	if err != nil {
		return nil, fmt.Errorf("failed to load bitmap: %w", err)
	}
	return &Bitmap{bits: data, totalBlocks: totalBlocks}, nil
}

// Init writes the bitmap of a freshly formatted image to s.
func Init(s store.Store, totalBlocks uint64) error {
	b, err := New(totalBlocks)
	if err != nil {
		return err
	}
	return b.Save(s)
}

// Save writes the bitmap to its region in s.
func (b *Bitmap) Save(s store.Store) error {
	if err := store.WriteAt(s, layout.BitmapOffset(), b.bits); err != nil {
		return fmt.Errorf("failed to save bitmap: %w", err)
	}
	return nil
}

// Bytes returns the encoded bitmap. The slice aliases the Bitmap.
func (b *Bitmap) Bytes() []byte {
	return b.bits
}

// BlockCount returns the number of blocks the bitmap covers.
func (b *Bitmap) BlockCount() uint64 {
	return b.totalBlocks
}

// IsSet reports whether block i is marked used.
func (b *Bitmap) IsSet(i types.BlockIndex) (bool, error) {
	byt, mask, err := b.locate(i)
	if err != nil {
		return false, err
	}
	return b.bits[byt]&mask != 0, nil
}

// Set marks block i used.
func (b *Bitmap) Set(i types.BlockIndex) error {
	byt, mask, err := b.locate(i)
	if err != nil {
		return err
	}
	b.bits[byt] |= mask
	return nil
}

// Clear marks block i free. The root block cannot be cleared.
func (b *Bitmap) Clear(i types.BlockIndex) error {
	if i == types.RootBlock {
		return fmt.Errorf("%w: cannot free the root block", types.ErrBlockOutOfRange)
	}
	byt, mask, err := b.locate(i)
	if err != nil {
		return err
	}
	b.bits[byt] &^= mask
	return nil
}

// FirstFree returns the lowest free block in 1..BlockCount()-1.
func (b *Bitmap) FirstFree() types.OptionalBlock {
	if index, ok := firstZeroBit(b.bits, 0, b.totalBlocks); ok {
		return types.SomeBlock(index)
	}
	return types.NoBlock()
}

// FreeCount returns the number of free blocks in 1..BlockCount()-1.
func (b *Bitmap) FreeCount() uint64 {
	return countZeroBits(b.bits, 0, b.totalBlocks)
}

// paddingSet reports whether any bit past the last block is set.
func (b *Bitmap) paddingSet() bool {
	used := b.totalBlocks % 8
	if used == 0 || len(b.bits) == 0 {
		return false
	}
	return b.bits[len(b.bits)-1]>>used != 0
}

func (b *Bitmap) locate(i types.BlockIndex) (int, byte, error) {
	if !i.Validate(b.totalBlocks) || uint64(i)/8 >= uint64(len(b.bits)) {
		return 0, 0, fmt.Errorf("%w: block %d, bitmap covers %d blocks", types.ErrBlockOutOfRange, i, b.totalBlocks)
	}
	return int(uint64(i) / 8), 1 << (uint64(i) % 8), nil
}

// firstZeroBit scans chunk, whose first bit is block firstBit, for the
// lowest clear bit that names an allocatable block. Padding bits at or past
// totalBlocks are never considered.
func firstZeroBit(chunk []byte, firstBit, totalBlocks uint64) (types.BlockIndex, bool) {
	for byt := 0; byt < len(chunk); byt++ {
		if chunk[byt] == 0xff {
			continue
		}
		for bit := uint64(0); bit < 8; bit++ {
			index := firstBit + uint64(byt)*8 + bit
			if index >= totalBlocks {
				return 0, false
			}
			if index < uint64(types.FirstAllocatableBlock) {
				continue
			}
			if chunk[byt]&(1<<bit) == 0 {
				return types.BlockIndex(index), true
			}
		}
	}
	return 0, false
}

func countZeroBits(chunk []byte, firstBit, totalBlocks uint64) uint64 {
	var free uint64
	for byt := 0; byt < len(chunk); byt++ {
		for bit := uint64(0); bit < 8; bit++ {
			index := firstBit + uint64(byt)*8 + bit
			if index >= totalBlocks {
				return free
			}
			if index >= uint64(types.FirstAllocatableBlock) && chunk[byt]&(1<<bit) == 0 {
				free++
			}
		}
	}
	return free
}
