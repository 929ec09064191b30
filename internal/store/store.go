// Package store provides random-access byte I/O over the backing container
// of an image.
//
// A Store is not safe for concurrent use. Callers that share one across
// goroutines must serialise access themselves.
package store

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrUnsupportedMode is returned by Open for a mode it does not know.
	ErrUnsupportedMode = errors.New("unsupported open mode")

	// ErrReadOnly is returned when writing through a read-only handle.
	ErrReadOnly = errors.New("store is read-only")

	// ErrNegativeOffset is returned when an offset does not fit in an int64.
	ErrNegativeOffset = errors.New("offset exceeds addressable range")
)

// Store is an open handle on an image. Writes issued through a handle are
// visible to subsequent reads through the same handle.
type Store interface {
	io.ReadWriteSeeker
	io.Closer
}

// Mode selects how an image is opened.
type Mode int

const (
	// ReadOnly opens an image for reading only.
	ReadOnly Mode = iota
	// ReadWrite opens an image for reading and writing.
	ReadWrite
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ReadOnly:
		return "read-only"
	case ReadWrite:
		return "read-write"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Seek moves s to the absolute offset.
func Seek(s Store, offset uint64) error {
	if offset > uint64(1<<63-1) {
		return fmt.Errorf("%w: %d", ErrNegativeOffset, offset)
	}
	if _, err := s.Seek(int64(offset), io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to offset %d: %w", offset, err)
	}
	return nil
}

// ReadAt seeks to offset and reads exactly n bytes.
func ReadAt(s Store, offset uint64, n int) ([]byte, error) {
	if err := Seek(s, offset); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(s, buf); err != nil {
		return nil, fmt.Errorf("failed to read %d bytes at offset %d: %w", n, offset, err)
	}
	return buf, nil
}

// WriteAt seeks to offset and writes all of p.
func WriteAt(s Store, offset uint64, p []byte) error {
	if err := Seek(s, offset); err != nil {
		return err
	}
	n, err := s.Write(p)
	if err != nil {
		return fmt.Errorf("failed to write %d bytes at offset %d: %w", len(p), offset, err)
	}
	if n != len(p) {
		return fmt.Errorf("failed to write %d bytes at offset %d: %w", len(p), offset, io.ErrShortWrite)
	}
	return nil
}

// WithStore opens path, runs fn with the handle and closes it on every
// exit path. A close error is joined with fn's error.
func WithStore(path string, mode Mode, fn func(Store) error) (err error) {
	f, err := Open(path, mode)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close %s: %w", path, cerr))
		}
	}()
	return fn(f)
}
