package store

import (
	"errors"
	"io"
	"os"
)

// Memory is an in-memory Store. Writes past the end grow the buffer and
// zero-fill any gap.
type Memory struct {
	data   []byte
	pos    int64
	closed bool
}

var _ Store = (*Memory)(nil)

// NewMemory returns a Memory store holding a copy of data.
func NewMemory(data []byte) *Memory {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Memory{data: buf}
}

// NewMemorySize returns a zero-filled Memory store of size bytes.
func NewMemorySize(size uint64) *Memory {
	return &Memory{data: make([]byte, size)}
}

func (m *Memory) Read(p []byte) (int, error) {
	if m.closed {
		return 0, os.ErrClosed
	}
	if m.pos >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *Memory) Write(p []byte) (int, error) {
	if m.closed {
		return 0, os.ErrClosed
	}
	end := m.pos + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *Memory) Seek(offset int64, whence int) (int64, error) {
	if m.closed {
		return 0, os.ErrClosed
	}
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = m.pos + offset
	case io.SeekEnd:
		abs = int64(len(m.data)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	m.pos = abs
	return abs, nil
}

// Close marks the store closed. A second Close returns os.ErrClosed.
func (m *Memory) Close() error {
	if m.closed {
		return os.ErrClosed
	}
	m.closed = true
	return nil
}

// Bytes returns the backing buffer. The slice aliases the store.
func (m *Memory) Bytes() []byte {
	return m.data
}
