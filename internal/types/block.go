package types

import "fmt"

// BlockIndex identifies a block slot within an image, counting from 0.
type BlockIndex uint64

// Validate reports whether the index addresses a block in an image of
// totalBlocks blocks.
func (b BlockIndex) Validate(totalBlocks uint64) bool {
	return uint64(b) < totalBlocks
}

// Allocatable reports whether the index may be handed out or freed by the
// allocator. The root block never is.
func (b BlockIndex) Allocatable(totalBlocks uint64) bool {
	return b >= FirstAllocatableBlock && b.Validate(totalBlocks)
}

// OptionalBlock is the result of a free block search. An empty value means
// the image has no free block, which is not an error.
type OptionalBlock struct {
	index BlockIndex
	ok    bool
}

// SomeBlock returns an OptionalBlock holding index.
func SomeBlock(index BlockIndex) OptionalBlock {
	return OptionalBlock{index: index, ok: true}
}

// NoBlock returns an empty OptionalBlock.
func NoBlock() OptionalBlock {
	return OptionalBlock{}
}

// Get returns the index and whether one is present.
func (o OptionalBlock) Get() (BlockIndex, bool) {
	return o.index, o.ok
}

// IsPresent reports whether the value holds an index.
func (o OptionalBlock) IsPresent() bool {
	return o.ok
}

// String returns a human-readable representation of the value.
func (o OptionalBlock) String() string {
	if !o.ok {
		return "none"
	}
	return fmt.Sprintf("%d", o.index)
}
