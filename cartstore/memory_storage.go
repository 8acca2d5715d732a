package cartstore

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// MemoryStorage keeps values in process memory. An optional byte quota mimics the
// size limit of browser local storage.
type MemoryStorage struct {
	mu    sync.RWMutex
	data  map[string]string
	quota int
	used  int

	watchers map[string][]chan struct{}
}

// NewMemoryStorage returns an empty store. quota <= 0 means unlimited.
func NewMemoryStorage(quota int) *MemoryStorage {
	return &MemoryStorage{
		data:     make(map[string]string),
		quota:    quota,
		watchers: make(map[string][]chan struct{}),
	}
}

func (m *MemoryStorage) Initialize(ctx context.Context) error {
	return nil
}

func (m *MemoryStorage) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return value, nil
}

func (m *MemoryStorage) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	used := m.used + len(key) + len(value)
	if old, ok := m.data[key]; ok {
		used -= len(key) + len(old)
	}
	if m.quota > 0 && used > m.quota {
		return errors.Wrapf(ErrQuotaExceeded, "set %q needs %d of %d bytes", key, used, m.quota)
	}

	m.data[key] = value
	m.used = used
	m.notify(key)
	return nil
}

func (m *MemoryStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.data[key]
	if !ok {
		return nil
	}
	delete(m.data, key)
	m.used -= len(key) + len(old)
	m.notify(key)
	return nil
}

// Ping always succeeds.
func (m *MemoryStorage) Ping(ctx context.Context) bool {
	return true
}

func (m *MemoryStorage) Close() error {
	return nil
}

// Watch reports every Set and Delete of key until ctx is done.
func (m *MemoryStorage) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	m.mu.Lock()
	m.watchers[key] = append(m.watchers[key], ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		list := m.watchers[key]
		for i, c := range list {
			if c == ch {
				m.watchers[key] = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(m.watchers[key]) == 0 {
			delete(m.watchers, key)
		}
		close(ch)
	}()
	return ch, nil
}

// notify must be called with mu held.
func (m *MemoryStorage) notify(key string) {
	for _, ch := range m.watchers[key] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
