package seglog

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/seglog/seglog/internal/frame"
	"github.com/seglog/seglog/internal/storage"
)

// recovered is the state of the log as established by the recovery scanner.
type recovered struct {
	// The sealed segments in ascending sequence order. All of them were
	// validated frame by frame.
	sealed []SegmentInfo

	// The active segment, positioned at the durable tail of the log.
	active *segment

	// The number of bytes which were discarded from the tail of the last
	// segment because they did not form a complete valid frame.
	discarded int64
}

// recoverExisting validates the given segments in ascending sequence order
// and establishes the durable tail of the log.
//
// Only the very last segment may end in an incomplete or damaged frame, which
// is the signature of a crash during an unsynced write. Its tail is discarded
// and the segment becomes the active one, positioned at the last valid frame
// boundary. Invalid bytes anywhere else mean the segment sequence cannot be
// trusted, so the scanner fails instead of guessing: silently dropping
// non-tail segments would hide data loss.
func recoverExisting(ctx context.Context, backend storage.Backend, seqs []uint64, logger *zap.Logger) (*recovered, error) {
	result := recovered{
		sealed: make([]SegmentInfo, 0, len(seqs)),
	}
	for index, seq := range seqs {
		if index > 0 && seq != seqs[index-1]+1 {
			return nil, fmt.Errorf("%w: segment %d is followed by segment %d", ErrRotationInconsistency, seqs[index-1], seq)
		}

		seg, err := openSegment(ctx, backend, seq)
		if err != nil {
			return nil, err
		}

		validOffset, decodeErr := scanSegment(ctx, seg)
		if decodeErr != nil && !errors.Is(decodeErr, frame.ErrTruncated) && !errors.Is(decodeErr, frame.ErrChecksumMismatch) {
			// Everything except the two corruption signals is a backend
			// failure and is surfaced as such.
			return nil, errors.Join(fmt.Errorf("scanning segment %d: %w", seq, decodeErr), seg.handle.Close())
		}

		last := index == len(seqs)-1
		if decodeErr == nil {
			if last {
				result.active = seg
				return &result, nil
			}
			seg.seal()
			result.sealed = append(result.sealed, seg.info())
			if err := seg.handle.Close(); err != nil {
				return nil, fmt.Errorf("closing segment %d: %w", seq, err)
			}
			continue
		}

		if !last {
			// A damaged segment followed by later segments implies a crash
			// mid-rotation or external tampering. There is no safe way to
			// continue past it.
			return nil, errors.Join(
				fmt.Errorf("%w: segment %d contains invalid bytes at offset %d but is not the last segment: %s", ErrCorruptLog, seq, validOffset, decodeErr),
				seg.handle.Close(),
			)
		}

		if err := discardTail(ctx, seg, validOffset); err != nil {
			return nil, errors.Join(err, seg.handle.Close())
		}
		result.discarded = seg.size - validOffset
		logger.Warn("discarded a damaged tail during log recovery",
			zap.Uint64("segment", seq),
			zap.Int64("offset", validOffset),
			zap.Int64("discardedBytes", result.discarded),
			zap.String("reason", decodeErr.Error()),
		)
		RecoveryDiscardedBytes.Add(float64(result.discarded))

		seg.size = validOffset
		result.active = seg
	}
	return &result, nil
}

// scanSegment decodes frames from the start of the segment until the first
// frame which does not decode cleanly. It returns the offset of the first
// byte which is not covered by a valid frame, and the error which ended the
// scan. The error is nil when the segment ends exactly at a frame boundary.
func scanSegment(ctx context.Context, seg *segment) (int64, error) {
	reader := seg.reader(ctx, 0)
	var data []byte
	var offset int64
	for {
		payload, n, err := frame.Decode(reader, data, seg.size-offset)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return offset, nil
			}
			return offset, err
		}
		data = payload
		offset += n
	}
}

// discardTail cuts the segment back to the given offset so the damaged bytes
// beyond it can never be appended after nor read again.
func discardTail(ctx context.Context, seg *segment, offset int64) error {
	truncater, ok := seg.handle.(storage.Truncater)
	if !ok {
		return fmt.Errorf("segment %d has a damaged tail at offset %d and the backend cannot truncate it in place", seg.seq, offset)
	}
	if err := truncater.Truncate(ctx, offset); err != nil {
		return fmt.Errorf("discarding the damaged tail of segment %d: %w", seg.seq, err)
	}
	if err := seg.sync(ctx); err != nil {
		return err
	}
	return nil
}
