package storage

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
)

// Memory is a Backend keeping all objects in memory. It is useful for tests
// and for setups where the log does not need to survive the process, and it
// can simulate a crash by dropping every byte which was never synced.
type Memory struct {
	mutex   sync.RWMutex
	objects map[string]*memoryObject
}

// Memory implements Backend.
var _ Backend = (*Memory)(nil)

type memoryObject struct {
	mutex sync.RWMutex

	// The content of the object.
	data []byte

	// The number of bytes which were covered by a durability barrier. Crash
	// cuts the object back to this length.
	durable int64
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		objects: make(map[string]*memoryObject),
	}
}

// Crash simulates a process crash by discarding all bytes which were appended
// after the last durability barrier of each object. Open handles must not be
// used afterwards.
func (m *Memory) Crash() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, object := range m.objects {
		object.mutex.Lock()
		object.data = object.data[:object.durable]
		object.mutex.Unlock()
	}
}

func (m *Memory) Create(ctx context.Context, name string) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.objects[name]; ok {
		return nil, fmt.Errorf("creating %q: %w", name, ErrAlreadyExists)
	}
	object := &memoryObject{}
	m.objects[name] = object
	return &memoryHandle{object: object}, nil
}

func (m *Memory) Open(ctx context.Context, name string) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	object, ok := m.objects[name]
	if !ok {
		return nil, fmt.Errorf("opening %q: %w", name, ErrNotFound)
	}
	return &memoryHandle{object: object}, nil
}

func (m *Memory) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]string, 0, len(m.objects))
	for name := range m.objects {
		result = append(result, name)
	}
	slices.Sort(result)
	return result, nil
}

func (m *Memory) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.objects[name]; !ok {
		return fmt.Errorf("removing %q: %w", name, ErrNotFound)
	}
	delete(m.objects, name)
	return nil
}

// memoryHandle provides access to a single object of the memory backend.
type memoryHandle struct {
	object *memoryObject
}

// memoryHandle implements Handle and Truncater.
var (
	_ Handle    = (*memoryHandle)(nil)
	_ Truncater = (*memoryHandle)(nil)
)

func (h *memoryHandle) ReadAt(ctx context.Context, p []byte, offset int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	h.object.mutex.RLock()
	defer h.object.mutex.RUnlock()

	if offset >= int64(len(h.object.data)) {
		return 0, io.EOF
	}
	n := copy(p, h.object.data[offset:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (h *memoryHandle) Append(ctx context.Context, p []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	h.object.mutex.Lock()
	defer h.object.mutex.Unlock()

	h.object.data = append(h.object.data, p...)
	return int64(len(h.object.data)), nil
}

func (h *memoryHandle) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.object.mutex.Lock()
	defer h.object.mutex.Unlock()

	h.object.durable = int64(len(h.object.data))
	return nil
}

func (h *memoryHandle) Size(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	h.object.mutex.RLock()
	defer h.object.mutex.RUnlock()

	return int64(len(h.object.data)), nil
}

func (h *memoryHandle) Truncate(ctx context.Context, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.object.mutex.Lock()
	defer h.object.mutex.Unlock()

	h.object.data = h.object.data[:size]
	h.object.durable = min(h.object.durable, size)
	return nil
}

func (h *memoryHandle) Close() error {
	return nil
}
