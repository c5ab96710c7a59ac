package seglog

import (
	"context"

	"go.uber.org/zap"
)

// SyncPolicyNone never issues a durability barrier on its own. Callers batch
// appends and call Sync themselves when they need the group to be durable.
type SyncPolicyNone struct{}

// SyncPolicyNone implements SyncPolicy.
var _ SyncPolicy = (*SyncPolicyNone)(nil)

// NewSyncPolicyNone creates a new SyncPolicyNone.
func NewSyncPolicyNone() *SyncPolicyNone {
	return &SyncPolicyNone{}
}

func (s *SyncPolicyNone) Startup(syncer Syncer, logger *zap.Logger) error {
	return nil
}

func (s *SyncPolicyNone) RecordAppended(ctx context.Context, appendIndex uint64) error {
	return nil
}

func (s *SyncPolicyNone) Shutdown() error {
	return nil
}
