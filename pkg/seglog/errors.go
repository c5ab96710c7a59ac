package seglog

import (
	"github.com/seglog/seglog/internal/frame"
	intseglog "github.com/seglog/seglog/internal/seglog"
)

var (
	// ErrFrameTooLarge is returned when a payload exceeds the maximum
	// encodable frame size.
	ErrFrameTooLarge = frame.ErrFrameTooLarge

	// ErrTruncated signals that the bytes of a frame end before the frame
	// does. It is tolerated only at the live tail during recovery.
	ErrTruncated = frame.ErrTruncated

	// ErrChecksumMismatch signals that a complete frame failed checksum
	// validation. It is tolerated only at the live tail during recovery.
	ErrChecksumMismatch = frame.ErrChecksumMismatch

	// ErrSegmentSealed is returned when appending to a segment which is no
	// longer the active one.
	ErrSegmentSealed = intseglog.ErrSegmentSealed

	// ErrCorruptLog is returned when invalid bytes are found outside the
	// live tail of the log.
	ErrCorruptLog = intseglog.ErrCorruptLog

	// ErrRotationInconsistency is returned when the segments discovered in
	// the backend do not form a consecutive sequence.
	ErrRotationInconsistency = intseglog.ErrRotationInconsistency

	// ErrInvalidPosition is returned when a scan is requested from a
	// position which no segment of the log contains.
	ErrInvalidPosition = intseglog.ErrInvalidPosition

	// ErrLogClosed is returned when operating on a log which was closed.
	ErrLogClosed = intseglog.ErrLogClosed
)
