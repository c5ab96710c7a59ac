package seglog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seglog/seglog/internal/frame"
	"github.com/seglog/seglog/internal/storage"
)

// RotationCallback is the callback users can register for getting notified
// when the active segment is sealed and a new one is created. The parameters
// are the sequence numbers of the previous and the next segment.
type RotationCallback func(previousSegment uint64, nextSegment uint64)

// DefaultRotationCallback provides a callback which does nothing.
var DefaultRotationCallback RotationCallback = func(previousSegment uint64, nextSegment uint64) {}

// writer owns the active segment and the append path of the log.
//
// Instances of writer are NOT safe to use concurrently. The Log synchronizes
// all access to it, which also enforces that appends are strictly sequential.
type writer struct {
	backend storage.Backend

	// The active segment. Its size only reflects flushed bytes.
	active *segment

	// The sequence number the next segment will receive on rotation.
	nextSeq uint64

	// Encoded frames which were appended but not yet pushed to the backend.
	// The buffer only ever contains complete frames, so a flush can never
	// leave a partial frame behind on a clean backend.
	buffer []byte

	// Counts appends over the lifetime of the writer. Used by sync policies
	// to track which appends a durability barrier already covered.
	appendIndex uint64

	// Rotation happens before the append which would grow the active segment
	// beyond this size.
	threshold int64

	logger           *zap.Logger
	rotationCallback RotationCallback

	// onSeal is invoked whenever the active segment is sealed, with the
	// segment's final description and its still-open handle. The Log uses it
	// to keep its segment inventory and reader handle cache current.
	onSeal func(info SegmentInfo, handle storage.Handle)
}

func newWriter(backend storage.Backend, active *segment, threshold int64, logger *zap.Logger, rotationCallback RotationCallback, onSeal func(SegmentInfo, storage.Handle)) *writer {
	return &writer{
		backend:          backend,
		active:           active,
		nextSeq:          active.seq + 1,
		buffer:           make([]byte, 0, 4*1024),
		threshold:        threshold,
		logger:           logger,
		rotationCallback: rotationCallback,
		onSeal:           onSeal,
	}
}

// nextPosition returns the position the next appended record will receive.
func (w *writer) nextPosition() Position {
	return Position{
		Segment: w.active.seq,
		Offset:  w.active.size + int64(len(w.buffer)),
	}
}

// append encodes the payload and adds it to the write buffer. The returned
// position is assigned immediately, durability is only established by a later
// sync. The second return value is the append index for sync policies.
//
// A failed append leaves the buffer and the cursor unchanged, nothing is
// half-appended.
func (w *writer) append(ctx context.Context, payload []byte) (Position, uint64, error) {
	if uint64(len(payload)) > frame.MaxPayloadSize {
		// Reject before rotating so an oversized payload leaves the log
		// completely untouched.
		return Position{}, 0, frame.ErrFrameTooLarge
	}

	if err := w.rotateIfNeeded(ctx); err != nil {
		return Position{}, 0, err
	}

	position := w.nextPosition()
	buffer, err := frame.Encode(w.buffer, payload)
	if err != nil {
		return Position{}, 0, err
	}
	w.buffer = buffer
	w.appendIndex++

	AppendsTotal.Inc()
	AppendedBytes.Add(float64(len(payload)))
	return position, w.appendIndex, nil
}

// flush pushes all buffered frames to the backend. The bytes may still be
// volatile afterwards, only sync establishes durability. A failed flush keeps
// the buffer intact so the caller can decide between retry and abort.
func (w *writer) flush(ctx context.Context) error {
	if len(w.buffer) == 0 {
		return nil
	}
	if err := w.active.append(ctx, w.buffer); err != nil {
		return err
	}
	w.buffer = w.buffer[:0]
	return nil
}

// sync flushes and then issues a durability barrier through the backend.
// Only after sync returns without error may prior appends be considered
// durable.
func (w *writer) sync(ctx context.Context) error {
	start := time.Now()
	if err := w.flush(ctx); err != nil {
		return err
	}
	if err := w.active.sync(ctx); err != nil {
		return err
	}
	SyncsTotal.Inc()
	SyncDuration.Observe(time.Since(start).Seconds())
	return nil
}

// rotateIfNeeded checks if the next append would grow the active segment
// beyond the configured threshold and rotates then. Rotation only ever
// happens between two complete appends, never inside a frame.
func (w *writer) rotateIfNeeded(ctx context.Context) error {
	size := w.active.size + int64(len(w.buffer))
	if size < w.threshold || size == 0 {
		// Either there is room left in the active segment, or the segment is
		// empty and rotating would create a zero-record segment.
		return nil
	}
	return w.rotate(ctx)
}

// rotate seals the active segment and creates a new one with the next
// sequence number. All buffered records are flushed and made durable first,
// so no record is lost or duplicated across the boundary.
func (w *writer) rotate(ctx context.Context) error {
	start := time.Now()

	if err := w.sync(ctx); err != nil {
		return fmt.Errorf("draining segment %d before rotation: %w", w.active.seq, err)
	}

	next, err := createSegment(ctx, w.backend, w.nextSeq)
	if err != nil {
		return err
	}

	previous := w.active
	previous.seal()
	w.active = next
	w.nextSeq++
	w.onSeal(previous.info(), previous.handle)
	w.rotationCallback(previous.seq, next.seq)

	duration := time.Since(start).Seconds()
	if duration > 1.0 {
		w.logger.Warn("segment rotation was slow",
			zap.Uint64("previousSegment", previous.seq),
			zap.Uint64("nextSegment", next.seq),
			zap.Float64("seconds", duration),
		)
	}
	RotationsTotal.Inc()
	RotationDuration.Observe(duration)
	return nil
}

// close flushes and syncs all buffered records and closes the active segment.
func (w *writer) close(ctx context.Context) error {
	syncErr := w.sync(ctx)
	closeErr := w.active.handle.Close()
	return errors.Join(syncErr, closeErr)
}
