package seglog

import intseglog "github.com/seglog/seglog/internal/seglog"

// SyncPolicy decides when appended records are automatically made durable.
type SyncPolicy = intseglog.SyncPolicy

// Syncer issues a durability barrier for all records appended so far. The
// Log implements it.
type Syncer = intseglog.Syncer
