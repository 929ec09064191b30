package store

import (
	"fmt"
	"os"
)

// File is a Store backed by an image file on disk.
type File struct {
	file *os.File
	path string
	mode Mode
}

var _ Store = (*File)(nil)

// Open opens the image at path. The file must already exist; creating and
// formatting images is the formatter's job.
func Open(path string, mode Mode) (*File, error) {
	var flag int
	switch mode {
	case ReadOnly:
		flag = os.O_RDONLY
	case ReadWrite:
		flag = os.O_RDWR
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, mode)
	}

	file, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	return &File{file: file, path: path, mode: mode}, nil
}

// Create creates or truncates the file at path and sizes it to size bytes.
// The returned handle is read-write.
func Create(path string, size uint64) (*File, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create image: %w", err)
	}

	if err := file.Truncate(int64(size)); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to size image to %d bytes: %w", size, err)
	}

	return &File{file: file, path: path, mode: ReadWrite}, nil
}

// Read implements io.Reader.
func (f *File) Read(p []byte) (int, error) {
	return f.file.Read(p)
}

// Write implements io.Writer. It fails on a read-only handle.
func (f *File) Write(p []byte) (int, error) {
	if f.mode == ReadOnly {
		return 0, ErrReadOnly
	}
	return f.file.Write(p)
}

// Seek implements io.Seeker.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	return f.file.Seek(offset, whence)
}

// Sync commits written data to stable storage.
func (f *File) Sync() error {
	return f.file.Sync()
}

// Close releases the descriptor. A second Close returns os.ErrClosed.
func (f *File) Close() error {
	return f.file.Close()
}

// Path returns the path the handle was opened with.
func (f *File) Path() string {
	return f.path
}

// Mode returns the mode the handle was opened with.
func (f *File) Mode() Mode {
	return f.mode
}

// Size returns the current size of the image in bytes.
func (f *File) Size() (int64, error) {
	stat, err := f.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat image: %w", err)
	}
	return stat.Size(), nil
}
