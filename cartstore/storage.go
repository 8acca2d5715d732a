package cartstore

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrKeyNotFound is returned by Storage.Get when nothing is stored under the key.
	ErrKeyNotFound = errors.New("key not found")
	// ErrQuotaExceeded is returned by Storage.Set when the write would overflow the quota.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrWatchUnsupported is returned by Watch on backends without change notification.
	ErrWatchUnsupported = errors.New("storage does not support change notification")
)

// Storage is the durable key-value store carts are persisted to.
type Storage interface {
	Initialize(ctx context.Context) error

	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error

	Ping(ctx context.Context) bool
	Close() error
}

// Watcher is implemented by backends that can report writes to a key, including
// writes made by other processes sharing the backend. The channel receives one value
// per burst of changes and is closed when ctx is done.
type Watcher interface {
	Watch(ctx context.Context, key string) (<-chan struct{}, error)
}

// ScopedStorage is a namespaced view of a shared Storage. Closing it does not close
// the underlying backend.
type ScopedStorage struct {
	base   Storage
	prefix string
}

// Scoped returns a view of s in which every key is prefixed with namespace.
func Scoped(s Storage, namespace string) *ScopedStorage {
	return &ScopedStorage{base: s, prefix: namespace + ":"}
}

func (s *ScopedStorage) Key(key string) string {
	return s.prefix + key
}

func (s *ScopedStorage) Initialize(ctx context.Context) error {
	return nil
}

func (s *ScopedStorage) Get(ctx context.Context, key string) (string, error) {
	return s.base.Get(ctx, s.Key(key))
}

func (s *ScopedStorage) Set(ctx context.Context, key, value string) error {
	return s.base.Set(ctx, s.Key(key), value)
}

func (s *ScopedStorage) Delete(ctx context.Context, key string) error {
	return s.base.Delete(ctx, s.Key(key))
}

func (s *ScopedStorage) Ping(ctx context.Context) bool {
	return s.base.Ping(ctx)
}

func (s *ScopedStorage) Close() error {
	return nil
}

func (s *ScopedStorage) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	w, ok := s.base.(Watcher)
	if !ok {
		return nil, ErrWatchUnsupported
	}
	return w.Watch(ctx, s.Key(key))
}
