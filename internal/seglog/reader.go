package seglog

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/seglog/seglog/internal/frame"
	"github.com/seglog/seglog/internal/storage"
)

// Record is a single decoded record of the log together with its position.
type Record struct {
	// Position identifies the record in the log.
	Position Position

	// Data is the payload of the record.
	Data []byte
}

// segmentView is the immutable slice of one segment a Reader is allowed to
// read: everything up to the size which was flushed when the scan was opened.
type segmentView struct {
	seq  uint64
	size int64
}

// Reader streams the records of the log in strict log order, spanning
// segment boundaries transparently. It is a snapshot: records appended after
// the scan was opened are not observed.
//
// Instances of Reader are NOT safe for concurrent use. Either use one on a
// single Go routine or provide your own external synchronization. Multiple
// Readers may run concurrently with each other and with the writer.
//
// The Reader holds no resources of its own: it pins a segment handle only
// for the duration of a single Next call. Cancelling a scan simply means to
// stop calling Next.
type Reader struct {
	ctx context.Context
	log *Log

	// The segments of the snapshot still to be read, in ascending order.
	views []segmentView

	// The index of the segment currently being read.
	index int

	// The byte offset of the next frame within the current segment.
	offset int64

	// The buffer to hold the record payload. Reused across records.
	data []byte

	// The value the reader returns. Only contains useful data if err is nil.
	value Record

	// The error for the last operation. If this is nil, the content of value
	// can be used.
	err error

	// Set once the end of the snapshot was reached.
	done bool
}

// Next reports if a record has been successfully read. When it returns true,
// Err() returns nil and Value() contains valid data. When it returns false,
// Err() is nil if the reader has reached the end of the snapshot, or it
// returns the error which stopped the scan.
func (r *Reader) Next() bool {
	for {
		if r.done || r.err != nil {
			return false
		}
		if r.index >= len(r.views) {
			r.done = true
			return false
		}

		view := r.views[r.index]
		shared, err := r.log.acquireHandle(r.ctx, view.seq)
		if err != nil {
			r.err = err
			return false
		}
		remaining := view.size - r.offset
		section := storage.NewSectionReader(r.ctx, shared.handle, r.offset, remaining)
		payload, n, err := frame.Decode(section, r.data, remaining)
		r.log.releaseHandle(shared)

		if err == nil {
			r.value = Record{
				Position: Position{Segment: view.seq, Offset: r.offset},
				Data:     payload,
			}
			r.data = payload
			r.offset += n
			return true
		}
		if errors.Is(err, io.EOF) {
			// This segment is exhausted, move on to the next one.
			r.index++
			r.offset = 0
			continue
		}
		if errors.Is(err, frame.ErrTruncated) || errors.Is(err, frame.ErrChecksumMismatch) {
			// Everything inside the snapshot was once validated, so invalid
			// bytes here mean the log changed underneath us.
			r.err = fmt.Errorf("%w: segment %d at offset %d: %s", ErrCorruptLog, view.seq, r.offset, err)
			return false
		}
		r.err = fmt.Errorf("reading segment %d at offset %d: %w", view.seq, r.offset, err)
		return false
	}
}

// Value returns the last record read. It is only valid after a call to Next
// which returned true, and only until the next call to Next: the payload
// buffer is reused. Copy the data if you need to keep it.
func (r *Reader) Value() Record {
	return r.value
}

// Err returns the error for the last call to Next.
func (r *Reader) Err() error {
	return r.err
}
