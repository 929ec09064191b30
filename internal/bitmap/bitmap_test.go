package bitmap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-bfs/internal/codec"
	"github.com/deploymenttheory/go-bfs/internal/layout"
	"github.com/deploymenttheory/go-bfs/internal/store"
	"github.com/deploymenttheory/go-bfs/internal/superblock"
	"github.com/deploymenttheory/go-bfs/internal/types"
)

const testBlocks = 2048

func formatMemory(t *testing.T, totalBlocks uint64) *store.Memory {
	t.Helper()
	m := store.NewMemory(nil)
	_, err := superblock.Format(m, totalBlocks)
	require.NoError(t, err)
	require.NoError(t, Init(m, totalBlocks))
	return m
}

func requireNext(t *testing.T, s store.Store, expected types.BlockIndex) {
	t.Helper()
	next, err := NextAvailableBlock(s)
	require.NoError(t, err)
	index, ok := next.Get()
	require.True(t, ok, "expected block %d, got none", expected)
	require.Equal(t, expected, index)
}

func TestFirstBlockIsReportedAsBeingFree(t *testing.T) {
	m := formatMemory(t, testBlocks)
	requireNext(t, m, 1)
}

func TestBlocksCanBeSetAndCleared(t *testing.T) {
	m := formatMemory(t, testBlocks)

	require.NoError(t, SetBlockInUse(m, 1, testBlocks, true))
	requireNext(t, m, 2)

	for i := types.BlockIndex(2); i < testBlocks-1; i++ {
		require.NoError(t, SetBlockInUse(m, i, testBlocks, true))
		requireNext(t, m, i+1)
	}

	// Freeing a low block makes it the next candidate again.
	require.NoError(t, SetBlockInUse(m, 25, testBlocks, false))
	requireNext(t, m, 25)

	// Freeing a higher block does not change the answer while 25 is free.
	require.NoError(t, SetBlockInUse(m, 27, testBlocks, false))
	requireNext(t, m, 25)

	// Taking 25 again moves the answer up to 27.
	require.NoError(t, SetBlockInUse(m, 25, testBlocks, true))
	requireNext(t, m, 27)
}

func TestFullImageHasNoAvailableBlock(t *testing.T) {
	for _, totalBlocks := range []uint64{1, 2, 9, 64, testBlocks} {
		m := formatMemory(t, totalBlocks)
		for i := types.BlockIndex(1); uint64(i) < totalBlocks; i++ {
			require.NoError(t, SetBlockInUse(m, i, totalBlocks, true))
		}

		next, err := NextAvailableBlock(m)
		require.NoError(t, err)
		assert.False(t, next.IsPresent(), "image of %d blocks should be full", totalBlocks)

		free, err := FreeBlockCount(m)
		require.NoError(t, err)
		assert.Zero(t, free)
	}
}

func TestPaddingBitsAreIgnored(t *testing.T) {
	// 9 blocks use two bitmap bytes, the last 7 bits of which are padding.
	const totalBlocks = 9
	m := formatMemory(t, totalBlocks)
	for i := types.BlockIndex(1); i < totalBlocks; i++ {
		require.NoError(t, SetBlockInUse(m, i, totalBlocks, true))
	}

	// Padding bits are still clear, yet the image is full.
	last := m.Bytes()[layout.BitmapOffset()+1]
	assert.Equal(t, byte(0x01), last)

	next, err := NextAvailableBlock(m)
	require.NoError(t, err)
	assert.False(t, next.IsPresent())
}

func TestRootBlockIsNeverReturned(t *testing.T) {
	m := formatMemory(t, 16)

	// Even with the root bit cleared behind the allocator's back, the scan
	// starts at block 1.
	require.NoError(t, store.WriteAt(m, layout.BitmapOffset(), []byte{0x00}))
	requireNext(t, m, 1)
}

func TestSetBlockInUseOutOfRange(t *testing.T) {
	m := formatMemory(t, testBlocks)

	tests := []struct {
		name  string
		index types.BlockIndex
	}{
		{"root block", 0},
		{"equal to block count", testBlocks},
		{"far past the end", 1 << 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := append([]byte(nil), m.Bytes()...)
			err := SetBlockInUse(m, tt.index, testBlocks, true)
			assert.ErrorIs(t, err, types.ErrBlockOutOfRange)
			assert.Equal(t, before, m.Bytes(), "rejected call must not touch the image")
		})
	}
}

func TestSetBlockInUseTouchesOnlyItsBit(t *testing.T) {
	m := formatMemory(t, testBlocks)
	require.NoError(t, SetBlockInUse(m, 9, testBlocks, true))
	require.NoError(t, SetBlockInUse(m, 15, testBlocks, true))
	require.NoError(t, SetBlockInUse(m, 9, testBlocks, false))

	bits := m.Bytes()[layout.BitmapOffset():]
	assert.Equal(t, byte(0x01), bits[0])
	assert.Equal(t, byte(0x80), bits[1])
	assert.Equal(t, byte(0x00), bits[2])
}

func TestSetBlockInUseIsIdempotent(t *testing.T) {
	m := formatMemory(t, 32)
	require.NoError(t, SetBlockInUse(m, 3, 32, true))
	require.NoError(t, SetBlockInUse(m, 3, 32, true))

	used, err := IsBlockInUse(m, 3, 32)
	require.NoError(t, err)
	assert.True(t, used)

	require.NoError(t, SetBlockInUse(m, 3, 32, false))
	require.NoError(t, SetBlockInUse(m, 3, 32, false))

	used, err = IsBlockInUse(m, 3, 32)
	require.NoError(t, err)
	assert.False(t, used)
}

func TestIsBlockInUse(t *testing.T) {
	m := formatMemory(t, 32)

	used, err := IsBlockInUse(m, types.RootBlock, 32)
	require.NoError(t, err)
	assert.True(t, used)

	used, err = IsBlockInUse(m, 31, 32)
	require.NoError(t, err)
	assert.False(t, used)

	_, err = IsBlockInUse(m, 32, 32)
	assert.ErrorIs(t, err, types.ErrBlockOutOfRange)
}

func TestFreeBlockCount(t *testing.T) {
	m := formatMemory(t, testBlocks)

	free, err := FreeBlockCount(m)
	require.NoError(t, err)
	assert.Equal(t, uint64(testBlocks-1), free)

	for _, i := range []types.BlockIndex{1, 2, 100, testBlocks - 1} {
		require.NoError(t, SetBlockInUse(m, i, testBlocks, true))
	}

	free, err = FreeBlockCount(m)
	require.NoError(t, err)
	assert.Equal(t, uint64(testBlocks-5), free)
}

func TestScanAcrossChunks(t *testing.T) {
	// More than one scan chunk of bitmap.
	const totalBlocks = scanChunkSize*8 + 100
	m := formatMemory(t, totalBlocks)

	// Fill the first chunk entirely by writing 0xff bytes directly.
	full := make([]byte, scanChunkSize)
	for i := range full {
		full[i] = 0xff
	}
	require.NoError(t, store.WriteAt(m, layout.BitmapOffset(), full))

	requireNext(t, m, scanChunkSize*8)

	free, err := FreeBlockCount(m)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), free)
}

func TestNextAvailableBlockReadError(t *testing.T) {
	// Header claims more blocks than the store holds bitmap bytes for.
	m := store.NewMemory(nil)
	encoded := codec.EncodeUint64(1 << 20)
	require.NoError(t, store.WriteAt(m, types.BlockCountOffset, encoded[:]))
	require.NoError(t, store.WriteAt(m, types.HeaderSize, []byte{0xff}))

	_, err := NextAvailableBlock(m)
	assert.Error(t, err)
}

func TestNextAvailableBlockRejectsHeaderBlockCount(t *testing.T) {
	for _, totalBlocks := range []uint64{0, math.MaxUint64} {
		m := store.NewMemory(nil)
		encoded := codec.EncodeUint64(totalBlocks)
		require.NoError(t, store.WriteAt(m, types.BlockCountOffset, encoded[:]))

		_, err := NextAvailableBlock(m)
		assert.Error(t, err, "block count %d", totalBlocks)
		_, err = FreeBlockCount(m)
		assert.Error(t, err, "block count %d", totalBlocks)
	}
}

func TestFormatMarksOnlyRootUsed(t *testing.T) {
	m := formatMemory(t, testBlocks)
	bits := m.Bytes()[layout.BitmapOffset() : layout.BitmapOffset()+layout.BitmapLength(testBlocks)]

	assert.Equal(t, byte(0x01), bits[0])
	for i, b := range bits[1:] {
		assert.Zero(t, b, "bitmap byte %d", i+1)
	}
}

func TestBitmapValue(t *testing.T) {
	b, err := New(20)
	require.NoError(t, err)
	assert.Len(t, b.Bytes(), 3)
	assert.Equal(t, uint64(20), b.BlockCount())

	root, err := b.IsSet(types.RootBlock)
	require.NoError(t, err)
	assert.True(t, root)

	first, ok := b.FirstFree().Get()
	require.True(t, ok)
	assert.Equal(t, types.BlockIndex(1), first)
	assert.Equal(t, uint64(19), b.FreeCount())

	require.NoError(t, b.Set(1))
	require.NoError(t, b.Set(2))
	require.NoError(t, b.Set(5))
	first, _ = b.FirstFree().Get()
	assert.Equal(t, types.BlockIndex(3), first)

	require.NoError(t, b.Clear(2))
	first, _ = b.FirstFree().Get()
	assert.Equal(t, types.BlockIndex(2), first)
	set, err := b.IsSet(2)
	require.NoError(t, err)
	assert.False(t, set)
	assert.Equal(t, uint64(17), b.FreeCount())
}

func TestBitmapValueOutOfRange(t *testing.T) {
	b, err := New(20)
	require.NoError(t, err)
	before := append([]byte(nil), b.Bytes()...)

	tests := []struct {
		name  string
		index types.BlockIndex
	}{
		{"padding bit", 20},
		{"last padding bit", 23},
		{"past the buffer", 100},
		{"far past the end", 1 << 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				assert.ErrorIs(t, b.Set(tt.index), types.ErrBlockOutOfRange)
				assert.ErrorIs(t, b.Clear(tt.index), types.ErrBlockOutOfRange)
				_, err := b.IsSet(tt.index)
				assert.ErrorIs(t, err, types.ErrBlockOutOfRange)
			})
			assert.Equal(t, before, b.Bytes(), "rejected call must not touch the bitmap")
		})
	}

	assert.ErrorIs(t, b.Clear(types.RootBlock), types.ErrBlockOutOfRange)
	assert.Equal(t, before, b.Bytes())
}

func TestNewRejectsBlockCount(t *testing.T) {
	_, err := New(0)
	assert.ErrorIs(t, err, types.ErrInvalidBlockCount)

	_, err = New(math.MaxUint64)
	assert.ErrorIs(t, err, types.ErrImageTooLarge)

	_, err = Load(store.NewMemory(nil), math.MaxUint64)
	assert.ErrorIs(t, err, types.ErrImageTooLarge)
}

func TestBitmapLoadSave(t *testing.T) {
	m := formatMemory(t, 64)

	b, err := Load(m, 64)
	require.NoError(t, err)
	fresh, err := New(64)
	require.NoError(t, err)
	assert.Equal(t, fresh, b)

	require.NoError(t, b.Set(10))
	require.NoError(t, b.Save(m))

	used, err := IsBlockInUse(m, 10, 64)
	require.NoError(t, err)
	assert.True(t, used)
	requireNext(t, m, 1)

	for i := types.BlockIndex(1); i < 64; i++ {
		require.NoError(t, b.Set(i))
	}
	require.NoError(t, b.Save(m))
	assert.Equal(t, "none", b.FirstFree().String())
}

func TestVerify(t *testing.T) {
	const totalBlocks = 12
	m := formatMemory(t, totalBlocks)
	require.NoError(t, SetBlockInUse(m, 1, totalBlocks, true))
	require.NoError(t, SetBlockInUse(m, 3, totalBlocks, true))

	summary, err := Verify(m, totalBlocks)
	require.NoError(t, err)
	assert.Equal(t, uint64(totalBlocks-3), summary.Free)
	next, _ := summary.Next.Get()
	assert.Equal(t, types.BlockIndex(2), next)

	tests := []struct {
		name   string
		offset uint64
		value  byte
	}{
		{"root bit cleared", layout.BitmapOffset(), 0x0a},
		{"padding bit set", layout.BitmapOffset() + 1, 0x10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := formatMemory(t, totalBlocks)
			require.NoError(t, store.WriteAt(m, tt.offset, []byte{tt.value}))
			_, err := Verify(m, totalBlocks)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}
