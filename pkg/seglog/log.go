package seglog

import intseglog "github.com/seglog/seglog/internal/seglog"

// Log coordinates the segments of one append-only log: it recovers the
// durable tail on open, owns the single writer, hands out snapshot readers
// and removes segments the caller no longer needs.
//
// Log is safe to use from multiple Go routines concurrently, with the
// restriction that there is exactly one Log instance per log directory.
// Cross-process ownership of the directory must be enforced externally.
type Log = intseglog.Log

// Open opens the log stored in the given backend, creating it if the backend
// holds no segments yet. It runs recovery over all existing segments and
// positions the writer at the durable tail.
var Open = intseglog.Open

// OpenDirectory opens the log stored in the given directory of the local
// filesystem. It is a convenience wrapper around Open with a disk backend.
var OpenDirectory = intseglog.OpenDirectory

// SegmentInfo describes one segment of the log.
type SegmentInfo = intseglog.SegmentInfo
