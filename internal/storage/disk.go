package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"slices"
)

// Disk is a Backend storing every object as a file in a single directory on
// the local filesystem.
type Disk struct {
	directory string
}

// Disk implements Backend.
var _ Backend = (*Disk)(nil)

// NewDisk returns a disk backend rooted at the given directory. The directory
// is created if it does not exist yet.
func NewDisk(directory string) (*Disk, error) {
	if err := os.MkdirAll(directory, 0o775); err != nil {
		return nil, fmt.Errorf("creating the log directory %q: %w", directory, err)
	}
	return &Disk{directory: directory}, nil
}

// Directory returns the directory all objects are stored in.
func (d *Disk) Directory() string {
	return d.directory
}

func (d *Disk) Create(ctx context.Context, name string) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath := path.Join(d.directory, name)
	file, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o664) //nolint:gosec // We can not validate paths in a library.
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("creating %q: %w", filePath, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("creating %q: %w", filePath, err)
	}
	return &diskHandle{file: file}, nil
}

func (d *Disk) Open(ctx context.Context, name string) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath := path.Join(d.directory, name)
	file, err := os.OpenFile(filePath, os.O_RDWR, 0) //nolint:gosec // We can not validate paths in a library.
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("opening %q: %w", filePath, ErrNotFound)
		}
		return nil, fmt.Errorf("opening %q: %w", filePath, err)
	}

	fileInfo, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("reading the size of %q: %w", filePath, err)
	}
	return &diskHandle{file: file, size: fileInfo.Size()}, nil
}

func (d *Disk) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(d.directory)
	if err != nil {
		return nil, fmt.Errorf("reading directory %q: %w", d.directory, err)
	}

	result := make([]string, 0, len(dirEntries))
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() {
			// We are not interested in directories.
			continue
		}
		result = append(result, dirEntry.Name())
	}

	// The file names returned by os.ReadDir() should already be in the
	// correct order. For additional safety we sort the names again, in case
	// the order does not match. Sorting an already sorted list should be a
	// cheap operation.
	slices.Sort(result)
	return result, nil
}

func (d *Disk) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	filePath := path.Join(d.directory, name)
	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("removing %q: %w", filePath, ErrNotFound)
		}
		return fmt.Errorf("removing %q: %w", filePath, err)
	}
	return nil
}

// diskHandle provides access to a single file of the disk backend.
type diskHandle struct {
	file *os.File

	// The current length of the file in bytes. Appends go to this offset so
	// the handle does not depend on the shared file position of the
	// underlying descriptor.
	size int64
}

// diskHandle implements Handle and Truncater.
var (
	_ Handle    = (*diskHandle)(nil)
	_ Truncater = (*diskHandle)(nil)
)

func (h *diskHandle) ReadAt(ctx context.Context, p []byte, offset int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n, err := h.file.ReadAt(p, offset)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("reading %q at offset %d: %w", h.file.Name(), offset, err)
	}
	return n, err
}

func (h *diskHandle) Append(ctx context.Context, p []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return h.size, err
	}

	n, err := h.file.WriteAt(p, h.size)
	if err != nil {
		// The cursor stays put, so a retry writes over the partial bytes
		// instead of after them.
		return h.size, fmt.Errorf("appending to %q: %w", h.file.Name(), err)
	}
	h.size += int64(n)
	return h.size, nil
}

func (h *diskHandle) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := h.file.Sync(); err != nil {
		return fmt.Errorf("syncing %q: %w", h.file.Name(), err)
	}
	return nil
}

func (h *diskHandle) Size(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return h.size, nil
}

func (h *diskHandle) Truncate(ctx context.Context, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := h.file.Truncate(size); err != nil {
		return fmt.Errorf("truncating %q to %d bytes: %w", h.file.Name(), size, err)
	}
	h.size = size
	return nil
}

func (h *diskHandle) Close() error {
	if err := h.file.Close(); err != nil {
		return fmt.Errorf("closing %q: %w", h.file.Name(), err)
	}
	return nil
}
