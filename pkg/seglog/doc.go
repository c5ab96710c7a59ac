// Package seglog provides a segmented append-only log: a durable,
// sequentially written record store usable as a write-ahead log or commit
// log beneath a higher-level data engine.
//
//   - The log is made up of individual records, which contain arbitrary bytes
//     as a payload. Each record is stored as one checksummed frame.
//   - Frames are stored in segments, append-only objects of a pluggable
//     storage backend. Every segment is named after its creation-order
//     sequence number, padded with leading zeros to be 20 characters in
//     length with a `.seg` extension. Only the newest segment is writable,
//     all earlier segments are sealed and immutable.
//   - A record is uniquely identified by its Position, the pair of segment
//     sequence number and byte offset. Record order is segment order, then
//     offset order.
//   - After a crash, opening the log recovers the longest valid prefix of
//     records and discards any partially written tail. Appends are durable
//     once Sync has returned, and not before.
package seglog
