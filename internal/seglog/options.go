package seglog

import (
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultRotationThreshold is the active segment size at which the
	// writer rotates into a new segment.
	DefaultRotationThreshold = 64 * 1024 * 1024

	// DefaultHandleCacheSize is the number of sealed segment handles kept
	// open for readers.
	DefaultHandleCacheSize = 64
)

// options holds the configuration of a Log. All values have working defaults
// and are adjusted through Option functions.
type options struct {
	rotationThreshold int64
	handleCacheSize   int
	syncPolicy        SyncPolicy
	logger            *zap.Logger
	rotationCallback  RotationCallback
}

func defaultOptions() options {
	return options{
		rotationThreshold: DefaultRotationThreshold,
		handleCacheSize:   DefaultHandleCacheSize,
		syncPolicy:        NewSyncPolicyNone(),
		logger:            zap.NewNop(),
		rotationCallback:  DefaultRotationCallback,
	}
}

// Option describes the function signature which all log options need to
// implement.
type Option func(o *options)

// WithRotationThreshold overwrites the default size at which the active
// segment is sealed and a new one is created. A frame never spans two
// segments, so a segment may exceed the threshold by the size of its last
// frame.
func WithRotationThreshold(rotationThreshold int64) Option {
	return func(o *options) {
		// We need to prevent zero-record segments as they would never fill
		// up. We therefore enforce at least one byte.
		o.rotationThreshold = max(rotationThreshold, 1)
	}
}

// WithHandleCacheSize overwrites the default number of sealed segment handles
// kept open for readers. Size it to the number of segments which are scanned
// concurrently.
func WithHandleCacheSize(handleCacheSize int) Option {
	return func(o *options) {
		o.handleCacheSize = max(handleCacheSize, 1)
	}
}

// WithSyncPolicyNone overwrites the sync policy with SyncPolicyNone. This is
// the default: callers batch appends and call Sync themselves.
func WithSyncPolicyNone() Option {
	return func(o *options) {
		o.syncPolicy = NewSyncPolicyNone()
	}
}

// WithSyncPolicyImmediate overwrites the sync policy with
// SyncPolicyImmediate.
func WithSyncPolicyImmediate() Option {
	return func(o *options) {
		o.syncPolicy = NewSyncPolicyImmediate()
	}
}

// WithSyncPolicyPeriodic overwrites the sync policy with SyncPolicyPeriodic.
func WithSyncPolicyPeriodic(syncAfterAppendCount int, syncEvery time.Duration) Option {
	return func(o *options) {
		o.syncPolicy = NewSyncPolicyPeriodic(syncAfterAppendCount, syncEvery)
	}
}

// WithSyncPolicyGrouped overwrites the sync policy with SyncPolicyGrouped.
func WithSyncPolicyGrouped(syncAfter time.Duration) Option {
	return func(o *options) {
		o.syncPolicy = NewSyncPolicyGrouped(syncAfter)
	}
}

// WithLogger sets the logger the log reports background failures and slow
// operations to. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRotationCallback sets the given callback for being triggered when the
// active segment is rotated. Useful for engines which track segment
// boundaries for checkpointing and retention.
func WithRotationCallback(rotationCallback RotationCallback) Option {
	return func(o *options) {
		o.rotationCallback = rotationCallback
	}
}
