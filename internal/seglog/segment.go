package seglog

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/seglog/seglog/internal/storage"
)

// segmentNamePattern is the naming pattern all segment objects need to follow.
var segmentNamePattern = regexp.MustCompile(`^\d{20}\.seg$`)

// segmentName returns the object name for the segment with the given sequence
// number. The zero padding makes lexicographic order match numeric order.
func segmentName(seq uint64) string {
	return fmt.Sprintf("%020d.seg", seq)
}

// listSegments returns the sequence numbers of all segments found in the
// backend, sorted in ascending order. Objects not matching the segment naming
// pattern are ignored.
func listSegments(ctx context.Context, backend storage.Backend) ([]uint64, error) {
	names, err := backend.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing segments: %w", err)
	}

	result := make([]uint64, 0, len(names))
	for _, name := range names {
		if !segmentNamePattern.MatchString(name) {
			// We are not interested in objects not matching our naming pattern.
			continue
		}
		seq, err := strconv.ParseUint(strings.TrimSuffix(name, ".seg"), 10, 64)
		if err != nil {
			// This error should never occur when our naming pattern is correct.
			return nil, fmt.Errorf("parsing the sequence number from %q: %w", name, err)
		}
		result = append(result, seq)
	}

	// The names returned by List are already sorted and the zero padding
	// makes that order match numeric order. For additional safety we sort the
	// sequence numbers again. Sorting an already sorted list should be a
	// cheap operation.
	slices.Sort(result)
	return result, nil
}

// segment is one physically contiguous append-only container of frames. The
// write cursor only moves forward and a sealed segment never changes content,
// which is what makes concurrent reads of sealed segments safe without
// locking.
type segment struct {
	// The sequence number of the segment, assigned in creation order.
	seq uint64

	// The handle of the backend object holding the segment.
	handle storage.Handle

	// The write cursor: the number of valid bytes in the segment. Bytes
	// beyond it must never be read.
	size int64

	// Sealed segments are read-only. Only the most recently created segment
	// may be unsealed.
	sealed bool
}

// createSegment creates a new empty segment with the given sequence number.
func createSegment(ctx context.Context, backend storage.Backend, seq uint64) (*segment, error) {
	handle, err := backend.Create(ctx, segmentName(seq))
	if err != nil {
		return nil, fmt.Errorf("creating segment %d: %w", seq, err)
	}
	return &segment{
		seq:    seq,
		handle: handle,
	}, nil
}

// openSegment opens an existing segment. The write cursor is set to the full
// physical size; the recovery scanner moves it back when it finds a damaged
// tail.
func openSegment(ctx context.Context, backend storage.Backend, seq uint64) (*segment, error) {
	handle, err := backend.Open(ctx, segmentName(seq))
	if err != nil {
		return nil, fmt.Errorf("opening segment %d: %w", seq, err)
	}

	size, err := handle.Size(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading the size of segment %d: %w", seq, err)
	}
	return &segment{
		seq:    seq,
		handle: handle,
		size:   size,
	}, nil
}

// append writes the given frame bytes at the current cursor and advances it.
// It does not guarantee durability, call sync for that. A failed append
// leaves the cursor unchanged.
func (s *segment) append(ctx context.Context, frames []byte) error {
	if s.sealed {
		return fmt.Errorf("appending to segment %d: %w", s.seq, ErrSegmentSealed)
	}

	if _, err := s.handle.Append(ctx, frames); err != nil {
		return fmt.Errorf("appending to segment %d: %w", s.seq, err)
	}
	s.size += int64(len(frames))
	return nil
}

// sync forces all previously appended bytes to stable storage.
func (s *segment) sync(ctx context.Context) error {
	if err := s.handle.Sync(ctx); err != nil {
		return fmt.Errorf("syncing segment %d: %w", s.seq, err)
	}
	return nil
}

// seal marks the segment read-only. Subsequent appends fail with
// ErrSegmentSealed.
func (s *segment) seal() {
	s.sealed = true
}

// reader returns a sequential reader over the valid bytes of the segment
// starting at the given offset.
func (s *segment) reader(ctx context.Context, offset int64) *storage.SectionReader {
	return storage.NewSectionReader(ctx, s.handle, offset, s.size-offset)
}

// info returns the description of the segment.
func (s *segment) info() SegmentInfo {
	return SegmentInfo{
		Seq:    s.seq,
		Size:   s.size,
		Sealed: s.sealed,
	}
}

// SegmentInfo describes one segment of the log.
type SegmentInfo struct {
	// Seq is the sequence number of the segment.
	Seq uint64

	// Size is the number of valid bytes the segment holds.
	Size int64

	// Sealed reports if the segment is read-only.
	Sealed bool
}
