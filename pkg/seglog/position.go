package seglog

import intseglog "github.com/seglog/seglog/internal/seglog"

// Position identifies a single record in the log. Record order is segment
// order first, then offset order within the segment.
type Position = intseglog.Position

// Start is the position before the first record of the log. Scanning from
// Start yields every record the log holds.
var Start = intseglog.Start
