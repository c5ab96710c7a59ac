package seglog

import intseglog "github.com/seglog/seglog/internal/seglog"

// Option describes the function signature which all log options need to
// implement.
type Option = intseglog.Option

const (
	// DefaultRotationThreshold is the active segment size at which the
	// writer rotates into a new segment.
	DefaultRotationThreshold = intseglog.DefaultRotationThreshold

	// DefaultHandleCacheSize is the number of sealed segment handles kept
	// open for readers.
	DefaultHandleCacheSize = intseglog.DefaultHandleCacheSize
)

// WithRotationThreshold overwrites the default size at which the active
// segment is sealed and a new one is created.
var WithRotationThreshold = intseglog.WithRotationThreshold

// WithHandleCacheSize overwrites the default number of sealed segment handles
// kept open for readers.
var WithHandleCacheSize = intseglog.WithHandleCacheSize

// WithSyncPolicyNone overwrites the sync policy with SyncPolicyNone. This is
// the default: callers batch appends and call Sync themselves.
var WithSyncPolicyNone = intseglog.WithSyncPolicyNone

// WithSyncPolicyImmediate overwrites the sync policy with
// SyncPolicyImmediate.
var WithSyncPolicyImmediate = intseglog.WithSyncPolicyImmediate

// WithSyncPolicyPeriodic overwrites the sync policy with SyncPolicyPeriodic.
var WithSyncPolicyPeriodic = intseglog.WithSyncPolicyPeriodic

// WithSyncPolicyGrouped overwrites the sync policy with SyncPolicyGrouped.
var WithSyncPolicyGrouped = intseglog.WithSyncPolicyGrouped

// WithLogger sets the logger the log reports background failures and slow
// operations to. The default discards everything.
var WithLogger = intseglog.WithLogger

// WithRotationCallback sets the given callback for being triggered when the
// active segment is rotated.
var WithRotationCallback = intseglog.WithRotationCallback

// RotationCallback is the callback users can register for getting notified
// when the active segment is sealed and a new one is created.
type RotationCallback = intseglog.RotationCallback
