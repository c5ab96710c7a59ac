package seglog

import "fmt"

// Position identifies a single record in the log. Record order is segment
// order first, then offset order within the segment.
type Position struct {
	// Segment is the sequence number of the segment holding the record.
	Segment uint64

	// Offset is the byte offset of the record's frame within the segment.
	Offset int64
}

// Start is the position before the first record of the log. Scanning from
// Start yields every record the log holds.
var Start = Position{}

// Less reports if p comes before other in log order.
func (p Position) Less(other Position) bool {
	if p.Segment != other.Segment {
		return p.Segment < other.Segment
	}
	return p.Offset < other.Offset
}

// String returns a human-readable representation of the position.
func (p Position) String() string {
	return fmt.Sprintf("%d/%d", p.Segment, p.Offset)
}
