// Package storage defines the capability a log engine needs from its storage
// target and provides backends for the local filesystem and for memory.
//
// The capability is deliberately small: byte-range reads, append-only writes,
// a durability barrier, listing and deletion. Every backend implements the
// same operation set and is selected at construction time, so the log engine
// never inspects what kind of storage it is talking to. All operations take a
// context because a backend may be remote and individual calls need to be
// cancellable.
package storage

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound is returned when an object with the given name does not
	// exist in the backend.
	ErrNotFound = errors.New("object not found")

	// ErrAlreadyExists is returned when creating an object with a name which
	// is already taken.
	ErrAlreadyExists = errors.New("object already exists")
)

// Backend provides access to a flat namespace of append-only objects. One
// backend instance corresponds to one log directory.
type Backend interface {
	// Create creates a new empty object and opens it. It fails with
	// ErrAlreadyExists when the name is already taken.
	Create(ctx context.Context, name string) (Handle, error)

	// Open opens an existing object. It fails with ErrNotFound when no
	// object with that name exists.
	Open(ctx context.Context, name string) (Handle, error)

	// List returns the names of all objects sorted lexicographically.
	List(ctx context.Context) ([]string, error)

	// Remove deletes the object with the given name.
	Remove(ctx context.Context, name string) error
}

// Handle provides access to a single object of the backend.
//
// Append and Truncate must only be called by a single owner. ReadAt is safe
// to call concurrently with appends as it never observes bytes beyond the
// offsets the caller already knows to be written.
type Handle interface {
	// ReadAt reads len(p) bytes starting at the given offset. It returns
	// io.EOF when the end of the object is reached before p is filled,
	// together with the number of bytes which were read.
	ReadAt(ctx context.Context, p []byte, offset int64) (int, error)

	// Append writes p after all previously written bytes and returns the new
	// object length. Previously written bytes are never overwritten. A failed
	// append does not advance the append cursor, even when some of the bytes
	// reached the object, so a retried append lands at the same offset.
	Append(ctx context.Context, p []byte) (int64, error)

	// Sync establishes a durability barrier: when it returns without error,
	// all prior appends on this handle survive a crash.
	Sync(ctx context.Context) error

	// Size returns the current length of the object in bytes.
	Size(ctx context.Context) (int64, error)

	// Close releases the handle. It does not imply a durability barrier.
	Close() error
}

// Truncater is an optional capability of a Handle. Backends which can cut an
// object to a given size implement it, which allows the recovery scanner to
// discard a damaged tail in place instead of rotating into a fresh segment.
type Truncater interface {
	// Truncate discards all bytes at and beyond the given size.
	Truncate(ctx context.Context, size int64) error
}

// SectionReader adapts a byte range of a Handle to the io.Reader interface.
// It is the bridge between the positional reads of the storage capability and
// the sequential frame decoding of the log.
type SectionReader struct {
	ctx    context.Context
	handle Handle
	offset int64
	limit  int64
}

// NewSectionReader returns a reader over the byte range [offset, offset+length)
// of the given handle. The context is used for all reads issued through the
// returned reader.
func NewSectionReader(ctx context.Context, handle Handle, offset int64, length int64) *SectionReader {
	return &SectionReader{
		ctx:    ctx,
		handle: handle,
		offset: offset,
		limit:  offset + length,
	}
}

// Read implements io.Reader.
func (r *SectionReader) Read(p []byte) (int, error) {
	if r.offset >= r.limit {
		return 0, io.EOF
	}
	if max := r.limit - r.offset; int64(len(p)) > max {
		p = p[:max]
	}
	n, err := r.handle.ReadAt(r.ctx, p, r.offset)
	r.offset += int64(n)
	return n, err
}
