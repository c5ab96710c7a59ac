package seglog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SyncPolicyPeriodic issues a durability barrier after some number of appends
// or after some time interval has passed, whichever comes first. Records
// appended after the last barrier are lost on a crash.
type SyncPolicyPeriodic struct {
	syncAfterAppendCount int
	syncEvery            time.Duration

	syncer Syncer
	logger *zap.Logger

	syncTicker        *time.Ticker
	shutdown          chan struct{}
	shutdownWaitGroup sync.WaitGroup

	mutex               sync.Mutex
	unsyncedAppendCount int
}

// SyncPolicyPeriodic implements SyncPolicy.
var _ SyncPolicy = (*SyncPolicyPeriodic)(nil)

// NewSyncPolicyPeriodic creates a new SyncPolicyPeriodic.
func NewSyncPolicyPeriodic(syncAfterAppendCount int, syncEvery time.Duration) *SyncPolicyPeriodic {
	return &SyncPolicyPeriodic{
		syncAfterAppendCount: max(syncAfterAppendCount, 1),
		syncEvery:            max(syncEvery, 100*time.Microsecond),
	}
}

func (s *SyncPolicyPeriodic) Startup(syncer Syncer, logger *zap.Logger) error {
	s.syncer = syncer
	s.logger = logger
	s.syncTicker = time.NewTicker(s.syncEvery)
	s.shutdown = make(chan struct{})
	s.shutdownWaitGroup.Add(1)
	go s.backgroundTask()
	return nil
}

func (s *SyncPolicyPeriodic) RecordAppended(ctx context.Context, appendIndex uint64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.unsyncedAppendCount++
	if s.unsyncedAppendCount < s.syncAfterAppendCount {
		return nil
	}

	if err := s.syncNow(ctx); err != nil {
		return err
	}
	return nil
}

func (s *SyncPolicyPeriodic) Shutdown() error {
	s.syncTicker.Stop()
	close(s.shutdown)
	s.shutdownWaitGroup.Wait()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.syncNow(context.Background()); err != nil {
		return err
	}
	return nil
}

func (s *SyncPolicyPeriodic) backgroundTask() {
	defer s.shutdownWaitGroup.Done()
	for {
		select {
		case <-s.syncTicker.C:
			s.periodicSync()
		case <-s.shutdown:
			return
		}
	}
}

func (s *SyncPolicyPeriodic) periodicSync() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.syncNow(context.Background()); err != nil {
		s.logger.Error("periodic sync failed", zap.Error(err))
		return
	}
}

func (s *SyncPolicyPeriodic) syncNow(ctx context.Context) error {
	if s.unsyncedAppendCount == 0 {
		return nil
	}

	if err := s.syncer.Sync(ctx); err != nil {
		return err
	}
	s.unsyncedAppendCount = 0
	return nil
}
