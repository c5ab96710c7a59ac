package seglog

import (
	"context"

	"go.uber.org/zap"
)

// SyncPolicyImmediate issues a durability barrier after every single append.
// This reduces the chances of data loss to the minimum, but it has a negative
// impact on performance.
type SyncPolicyImmediate struct {
	syncer Syncer
}

// SyncPolicyImmediate implements SyncPolicy.
var _ SyncPolicy = (*SyncPolicyImmediate)(nil)

// NewSyncPolicyImmediate creates a new SyncPolicyImmediate.
func NewSyncPolicyImmediate() *SyncPolicyImmediate {
	return &SyncPolicyImmediate{}
}

func (s *SyncPolicyImmediate) Startup(syncer Syncer, logger *zap.Logger) error {
	s.syncer = syncer
	return nil
}

func (s *SyncPolicyImmediate) RecordAppended(ctx context.Context, appendIndex uint64) error {
	return s.syncer.Sync(ctx)
}

func (s *SyncPolicyImmediate) Shutdown() error {
	return nil
}
