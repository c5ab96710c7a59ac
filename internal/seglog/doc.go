// Package seglog provides the implementation of a segmented append-only log.
//
//   - The log is made up of individual records, which contain arbitrary bytes
//     as a payload. Each record is stored as a single frame carrying the
//     payload length and a checksum (see the frame package for the exact
//     layout).
//   - Frames are stored in segments. A segment is one append-only object of
//     the storage backend. Every segment is named after its creation-order
//     sequence number, padded with leading zeros to be 20 characters in
//     length with a `.seg` extension, so lexicographic listing order matches
//     numeric order. Only the segment with the highest sequence number is
//     writable, all earlier segments are sealed and never change.
//   - A record is uniquely identified by its Position, the pair of segment
//     sequence number and byte offset within that segment. Positions are
//     never reused and record order is segment order, then offset order.
//   - On open, the recovery scanner validates all segments and discards any
//     partially written tail on the last segment. Appends become durable only
//     once Sync has returned; a crash before that loses at most the records
//     appended after the last durability barrier, never earlier ones.
//   - The log is single-writer. Any number of readers may scan concurrently
//     with the writer and with each other; a scan observes the records which
//     were flushed when it was opened and never sees later appends.
package seglog
