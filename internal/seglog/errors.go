package seglog

import "errors"

var (
	// ErrSegmentSealed is returned when appending to a segment which is no
	// longer the active one. This is a programming error of the caller.
	ErrSegmentSealed = errors.New("the segment is sealed")

	// ErrCorruptLog is returned when invalid bytes are found outside the
	// live tail of the log, either by a scan or by the recovery scanner in a
	// segment which is not the last one. Sealed segments must never contain
	// invalid bytes, so this is never repaired automatically.
	ErrCorruptLog = errors.New("the log is corrupt")

	// ErrRotationInconsistency is returned when the segments discovered in
	// the backend do not form a consecutive sequence. Guessing which
	// segments to keep would risk silent data loss, so recovery surfaces
	// the situation to the caller instead.
	ErrRotationInconsistency = errors.New("the segment sequence is inconsistent")

	// ErrInvalidPosition is returned when a scan is requested from a
	// position which no segment of the log contains.
	ErrInvalidPosition = errors.New("no segment contains the requested position")

	// ErrLogClosed is returned when operating on a log which was closed.
	ErrLogClosed = errors.New("the log is closed")
)
