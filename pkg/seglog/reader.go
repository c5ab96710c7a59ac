package seglog

import intseglog "github.com/seglog/seglog/internal/seglog"

// Reader streams the records of the log in strict log order, spanning
// segment boundaries transparently. It is a snapshot: records appended after
// the scan was opened are not observed.
//
// Instances of Reader are NOT safe for concurrent use. Either use one on a
// single Go routine or provide your own external synchronization.
type Reader = intseglog.Reader

// Record is a single decoded record of the log together with its position.
type Record = intseglog.Record
