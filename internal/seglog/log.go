package seglog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/seglog/seglog/internal/storage"
)

// Log coordinates the segments of one append-only log: it recovers the
// durable tail on open, owns the single writer, hands out snapshot readers
// and removes segments the caller no longer needs.
//
// Log is safe to use from multiple Go routines concurrently, with the
// restriction that there is exactly one Log instance per log directory.
// Cross-process ownership of the directory must be enforced externally.
type Log struct {
	mutex sync.Mutex

	backend storage.Backend
	opts    options

	// The sealed segments in ascending sequence order.
	sealed []SegmentInfo

	// The writer owning the active segment.
	writer *writer

	// Cache of the handles readers use, keyed by sequence number. Entries
	// are reference counted: eviction closes a handle only once no reader
	// pins it anymore.
	handles *lru.Cache

	// closing is set at the start of Close and rejects new operations.
	// closed is set once all handles are released. The sync policy issues
	// its final durability barrier between the two.
	closing bool
	closed  bool
}

// Log implements Syncer.
var _ Syncer = (*Log)(nil)

// Open opens the log stored in the given backend, creating it if the backend
// holds no segments yet. It runs recovery over all existing segments and
// positions the writer at the durable tail.
//
// Open fails loudly when recovery cannot establish an unambiguous durable
// tail. It never guesses around missing or damaged segments.
func Open(ctx context.Context, backend storage.Backend, opts ...Option) (*Log, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	// The eviction callback only ever runs during Add, Remove and Purge
	// calls, which all happen under the log lock, so it may touch the
	// shared handle's fields directly.
	handles, err := lru.NewWithEvict(o.handleCacheSize, func(key any, value any) {
		shared := value.(*sharedHandle)
		if shared.refs > 0 {
			// A reader is still inside the segment. The last release
			// closes the handle.
			shared.doomed = true
			return
		}
		if err := shared.handle.Close(); err != nil {
			o.logger.Warn("closing an evicted segment handle failed", zap.Any("segment", key), zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("creating the segment handle cache: %w", err)
	}

	seqs, err := listSegments(ctx, backend)
	if err != nil {
		return nil, err
	}

	var sealed []SegmentInfo
	var active *segment
	if len(seqs) == 0 {
		active, err = createSegment(ctx, backend, 0)
		if err != nil {
			return nil, err
		}
	} else {
		result, err := recoverExisting(ctx, backend, seqs, o.logger)
		if err != nil {
			return nil, err
		}
		sealed = result.sealed
		active = result.active
	}

	newLog := Log{
		backend: backend,
		opts:    o,
		sealed:  sealed,
		handles: handles,
	}
	newLog.writer = newWriter(backend, active, o.rotationThreshold, o.logger, o.rotationCallback, newLog.segmentSealed)

	if err := o.syncPolicy.Startup(&newLog, o.logger); err != nil {
		return nil, errors.Join(fmt.Errorf("starting the sync policy: %w", err), active.handle.Close())
	}
	return &newLog, nil
}

// OpenDirectory opens the log stored in the given directory of the local
// filesystem. It is a convenience wrapper around Open with a disk backend.
func OpenDirectory(ctx context.Context, directory string, opts ...Option) (*Log, error) {
	backend, err := storage.NewDisk(directory)
	if err != nil {
		return nil, err
	}
	return Open(ctx, backend, opts...)
}

// Append adds the payload as a new record to the log and returns its
// position. The position is assigned immediately; the record is durable only
// after a later Sync has returned. This is what enables group commit: call
// Append for every record of the batch, then Sync once.
func (l *Log) Append(ctx context.Context, payload []byte) (Position, error) {
	l.mutex.Lock()
	if l.closing {
		l.mutex.Unlock()
		return Position{}, ErrLogClosed
	}
	position, appendIndex, err := l.writer.append(ctx, payload)
	l.mutex.Unlock()
	if err != nil {
		return Position{}, err
	}

	// Note that the call to the sync policy must not happen under the log
	// lock. The sync policy can block to group several Append calls. If this
	// call would happen under the lock, we would not be able to have any
	// concurrency at all.
	if err := l.opts.syncPolicy.RecordAppended(ctx, appendIndex); err != nil {
		return Position{}, err
	}
	return position, nil
}

// Flush pushes all buffered records to the backend without issuing a
// durability barrier. The bytes may still sit in a volatile cache afterwards.
func (l *Log) Flush(ctx context.Context) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.closing {
		return ErrLogClosed
	}
	return l.writer.flush(ctx)
}

// Sync makes all previously appended records durable. Only after Sync returns
// without error may the caller consider prior appends to survive a crash.
func (l *Log) Sync(ctx context.Context) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.closed {
		return ErrLogClosed
	}
	return l.writer.sync(ctx)
}

// Scan returns a Reader over the records of the log starting at the given
// position, in strict log order. Pass Start to read the log from its
// beginning. The Reader is a snapshot: it observes the records flushed before
// the call and none appended afterwards.
//
// The position must be a frame boundary the log handed out earlier, in a
// segment the log still holds.
func (l *Log) Scan(ctx context.Context, from Position) (*Reader, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.closing {
		return nil, ErrLogClosed
	}

	views := make([]segmentView, 0, len(l.sealed)+1)
	for _, info := range l.sealed {
		views = append(views, segmentView{seq: info.Seq, size: info.Size})
	}
	views = append(views, segmentView{seq: l.writer.active.seq, size: l.writer.active.size})

	if from == Start {
		return &Reader{ctx: ctx, log: l, views: views}, nil
	}

	for index, view := range views {
		if view.seq != from.Segment {
			continue
		}
		if from.Offset > view.size {
			return nil, fmt.Errorf("%w: offset %d exceeds the %d valid bytes of segment %d", ErrInvalidPosition, from.Offset, view.size, view.seq)
		}
		return &Reader{ctx: ctx, log: l, views: views[index:], offset: from.Offset}, nil
	}
	return nil, fmt.Errorf("%w: segment %d is not part of the log", ErrInvalidPosition, from.Segment)
}

// Rotate seals the active segment and creates a new one, regardless of the
// rotation threshold. All buffered records are made durable first.
func (l *Log) Rotate(ctx context.Context) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.closing {
		return ErrLogClosed
	}
	return l.writer.rotate(ctx)
}

// RemoveSegmentsBefore removes all sealed segments with a sequence number
// below the given one. The active segment is never removed. The log itself
// never removes segments on its own: which records are still needed is known
// only to the engine on top, typically after a checkpoint.
func (l *Log) RemoveSegmentsBefore(ctx context.Context, seq uint64) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.closing {
		return ErrLogClosed
	}

	for len(l.sealed) > 0 && l.sealed[0].Seq < seq {
		doomed := l.sealed[0]
		if err := l.backend.Remove(ctx, segmentName(doomed.Seq)); err != nil {
			return fmt.Errorf("removing segment %d: %w", doomed.Seq, err)
		}
		l.handles.Remove(doomed.Seq)
		l.sealed = l.sealed[1:]
		SegmentsRemovedTotal.Inc()
	}
	return nil
}

// NextPosition returns the position the next appended record will receive.
// Useful for tests and for engines tracking their progress through the log.
func (l *Log) NextPosition() Position {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return l.writer.nextPosition()
}

// Segments returns a description of all segments the log currently holds, in
// ascending sequence order. The last entry is the active segment; its size
// only reflects flushed bytes.
func (l *Log) Segments() []SegmentInfo {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	result := make([]SegmentInfo, 0, len(l.sealed)+1)
	result = append(result, l.sealed...)
	result = append(result, l.writer.active.info())
	return result
}

// Close makes all buffered records durable and releases all handles. The log
// must not be used afterwards.
func (l *Log) Close(ctx context.Context) error {
	l.mutex.Lock()
	if l.closing {
		l.mutex.Unlock()
		return ErrLogClosed
	}
	l.closing = true
	l.mutex.Unlock()

	// The sync policy may issue a final Sync, which takes the log lock, so
	// it has to be shut down before the lock is held. Sync stays available
	// until closed is set.
	shutdownErr := l.opts.syncPolicy.Shutdown()

	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.closed = true
	closeErr := l.writer.close(ctx)
	l.handles.Purge()
	return errors.Join(shutdownErr, closeErr)
}

// segmentSealed records a freshly sealed segment and disposes of the
// writer's handle. Readers may already have opened their own handle for the
// segment; the writer's one is only kept when the cache has none.
// It is called by the writer during rotation, under the log lock.
func (l *Log) segmentSealed(info SegmentInfo, handle storage.Handle) {
	l.sealed = append(l.sealed, info)
	if _, ok := l.handles.Get(info.Seq); ok {
		if err := handle.Close(); err != nil {
			l.opts.logger.Warn("closing the sealed segment handle failed", zap.Uint64("segment", info.Seq), zap.Error(err))
		}
		return
	}
	l.handles.Add(info.Seq, &sharedHandle{handle: handle})
}

// sharedHandle is a cache entry for a segment handle which any number of
// readers may use at the same time. All fields are guarded by the log lock.
type sharedHandle struct {
	handle storage.Handle

	// The number of readers currently pinning the handle.
	refs int

	// Set when the handle was evicted from the cache while still pinned.
	// The last release closes it.
	doomed bool
}

// acquireHandle returns a pinned handle for the segment with the given
// sequence number. A pinned handle is never closed, so readers can use it
// without holding the log lock. Every successful acquire must be paired with
// a releaseHandle call.
func (l *Log) acquireHandle(ctx context.Context, seq uint64) (*sharedHandle, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.closing {
		return nil, ErrLogClosed
	}
	if cached, ok := l.handles.Get(seq); ok {
		shared := cached.(*sharedHandle)
		shared.refs++
		return shared, nil
	}

	handle, err := l.backend.Open(ctx, segmentName(seq))
	if err != nil {
		return nil, fmt.Errorf("opening segment %d: %w", seq, err)
	}
	shared := &sharedHandle{handle: handle, refs: 1}
	l.handles.Add(seq, shared)
	return shared, nil
}

// releaseHandle unpins a previously acquired handle. The last release of a
// handle which was evicted in the meantime closes it.
func (l *Log) releaseHandle(shared *sharedHandle) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	shared.refs--
	if shared.doomed && shared.refs == 0 {
		if err := shared.handle.Close(); err != nil {
			l.opts.logger.Warn("closing a released segment handle failed", zap.Error(err))
		}
	}
}
