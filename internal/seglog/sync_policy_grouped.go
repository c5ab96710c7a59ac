package seglog

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SyncPolicyGrouped batches the durability barriers of concurrent appenders:
// every RecordAppended call blocks until a barrier covering its append has
// been issued, and one barrier covers all appends which accumulated while it
// was pending. This keeps the durability guarantee of syncing every append
// while amortizing the barrier cost over the whole group.
type SyncPolicyGrouped struct {
	syncAfter time.Duration

	syncer Syncer
	logger *zap.Logger

	syncTimer         *time.Timer
	shutdown          chan struct{}
	shutdownWaitGroup sync.WaitGroup
	backgroundSync    sync.Cond

	mutex           sync.Mutex
	pendingIndex    uint64
	syncedIndex     uint64
	syncTimerActive bool

	// Set when the final barrier during shutdown failed. Waiters can never
	// be covered by a barrier anymore and fail with this error.
	shutdownErr error
}

// SyncPolicyGrouped implements SyncPolicy.
var _ SyncPolicy = (*SyncPolicyGrouped)(nil)

// NewSyncPolicyGrouped creates a new SyncPolicyGrouped. syncAfter is the time
// window in which appends are grouped under a single barrier.
func NewSyncPolicyGrouped(syncAfter time.Duration) *SyncPolicyGrouped {
	return &SyncPolicyGrouped{
		syncAfter: max(syncAfter, 100*time.Microsecond),
	}
}

func (s *SyncPolicyGrouped) Startup(syncer Syncer, logger *zap.Logger) error {
	s.syncer = syncer
	s.logger = logger
	s.syncTimer = time.NewTimer(math.MaxInt64)
	s.shutdown = make(chan struct{})
	s.backgroundSync.L = &s.mutex
	s.shutdownWaitGroup.Add(1)
	go s.backgroundTask()
	return nil
}

func (s *SyncPolicyGrouped) RecordAppended(ctx context.Context, appendIndex uint64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.syncTimerActive {
		s.syncTimer.Reset(s.syncAfter)
		s.syncTimerActive = true
	}

	s.pendingIndex = max(s.pendingIndex, appendIndex)
	for s.syncedIndex < appendIndex {
		if s.shutdownErr != nil {
			return s.shutdownErr
		}
		s.backgroundSync.Wait()
	}
	return nil
}

func (s *SyncPolicyGrouped) Shutdown() error {
	s.syncTimer.Stop()
	close(s.shutdown)
	s.shutdownWaitGroup.Wait()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.syncNow(); err != nil {
		s.shutdownErr = err
		s.backgroundSync.Broadcast()
		return err
	}
	return nil
}

func (s *SyncPolicyGrouped) backgroundTask() {
	defer s.shutdownWaitGroup.Done()
	for {
		select {
		case <-s.syncTimer.C:
			s.groupSync()
		case <-s.shutdown:
			return
		}
	}
}

func (s *SyncPolicyGrouped) groupSync() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.syncNow(); err != nil {
		s.logger.Error("grouped sync failed", zap.Error(err))
		// Re-arm the timer so blocked appenders get another barrier attempt
		// instead of waiting forever.
		s.syncTimer.Reset(s.syncAfter)
		return
	}
	s.syncTimerActive = false
}

func (s *SyncPolicyGrouped) syncNow() error {
	if s.syncedIndex == s.pendingIndex {
		return nil
	}

	if err := s.syncer.Sync(context.Background()); err != nil {
		return err
	}
	s.syncedIndex = s.pendingIndex
	s.backgroundSync.Broadcast()
	return nil
}
