package seglog

import (
	"context"

	"go.uber.org/zap"
)

// Syncer issues a durability barrier for all records appended so far. The
// Log implements it.
type Syncer interface {
	Sync(ctx context.Context) error
}

// SyncPolicy decides when appended records are automatically made durable.
//
// The default policy is SyncPolicyNone: durability is entirely caller-driven
// by calling Sync explicitly, which is how group commit is expressed at the
// call site. The other policies trade latency against durability without the
// caller having to manage barriers itself.
type SyncPolicy interface {
	// Startup is called once when the log is opened, before any append.
	Startup(syncer Syncer, logger *zap.Logger) error

	// RecordAppended is called after every append, outside the log's
	// internal lock so policies are free to block for batching.
	RecordAppended(ctx context.Context, appendIndex uint64) error

	// Shutdown is called once when the log is closed. It must complete any
	// outstanding barrier work.
	Shutdown() error
}
