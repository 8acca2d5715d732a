package cartstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStorage runs the behaviour every backend shares.
func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	assert.True(t, s.Ping(ctx))

	_, err := s.Get(ctx, "session:1:cart")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, s.Set(ctx, "session:1:cart", `[]`))
	require.NoError(t, s.Set(ctx, "session:1:cart", `[{"id":"a","name":"","price":1,"quantity":1}]`))
	got, err := s.Get(ctx, "session:1:cart")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a","name":"","price":1,"quantity":1}]`, got)

	require.NoError(t, s.Delete(ctx, "session:1:cart"))
	require.NoError(t, s.Delete(ctx, "session:1:cart"), "deleting twice is fine")
	_, err = s.Get(ctx, "session:1:cart")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

// expectSignal waits for one change notification.
func expectSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case _, ok := <-ch:
		require.True(t, ok, "watch channel closed early")
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
	}
}

func TestMemoryStorage(t *testing.T) {
	exerciseStorage(t, NewMemoryStorage(0))
}

func TestMemoryStorageQuota(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStorage(20)

	require.NoError(t, m.Set(ctx, "k", "0123456789"))
	err := m.Set(ctx, "other", "0123456789")
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	// Overwriting reuses the space of the old value.
	require.NoError(t, m.Set(ctx, "k", "0123456789abcdef"))
	require.NoError(t, m.Delete(ctx, "k"))
	require.NoError(t, m.Set(ctx, "other", "0123456789"))
}

func TestMemoryStorageWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewMemoryStorage(0)

	ch, err := m.Watch(ctx, "cart")
	require.NoError(t, err)

	require.NoError(t, m.Set(ctx, "unrelated", "x"))
	require.NoError(t, m.Set(ctx, "cart", "[]"))
	expectSignal(t, ch)

	cancel()
	for range ch {
	}
}

func TestFileStorage(t *testing.T) {
	s := NewFileStorage(t.TempDir(), testLogger())
	require.NoError(t, s.Initialize(context.Background()))
	defer s.Close()
	exerciseStorage(t, s)
}

func TestFileStorageInitializeCreatesDir(t *testing.T) {
	dir := t.TempDir() + "/nested/carts"
	s := NewFileStorage(dir, testLogger())
	assert.False(t, s.Ping(context.Background()))

	require.NoError(t, s.Initialize(context.Background()))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.True(t, s.Ping(context.Background()))
}

func TestFileStorageWatchSeesOtherProcess(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	reader := NewFileStorage(dir, testLogger())
	writer := NewFileStorage(dir, testLogger())
	require.NoError(t, reader.Initialize(ctx))
	require.NoError(t, writer.Initialize(ctx))

	ch, err := reader.Watch(ctx, "session:abc:cart")
	require.NoError(t, err)

	require.NoError(t, writer.Set(ctx, "session:abc:cart", `[]`))
	expectSignal(t, ch)

	require.NoError(t, reader.Close())
	for range ch {
	}
}

func TestSQLiteStorage(t *testing.T) {
	s, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Initialize(context.Background()))
	exerciseStorage(t, s)
}

func TestSQLiteStorageOnDisk(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/data/storefront.db"

	s, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	require.NoError(t, s.Initialize(ctx))
	require.NoError(t, s.Set(ctx, "cart", `[]`))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.Initialize(ctx))
	got, err := reopened.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, `[]`, got)
}

func TestRedisStorage(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	s := NewRedisStorage(addr, "storefront-test", testLogger())
	defer s.Close()
	require.NoError(t, s.Initialize(ctx))
	exerciseStorage(t, s)

	watchCtx, cancel := context.WithCancel(ctx)
	ch, err := s.Watch(watchCtx, "session:abc:cart")
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "session:abc:cart", `[]`))
	expectSignal(t, ch)
	cancel()
	for range ch {
	}
}

func TestScopedStorage(t *testing.T) {
	ctx := context.Background()
	shared := NewMemoryStorage(0)
	a := Scoped(shared, "session:a")
	b := Scoped(shared, "session:b")

	require.NoError(t, a.Set(ctx, CartKey, "A"))
	require.NoError(t, b.Set(ctx, CartKey, "B"))

	got, err := a.Get(ctx, CartKey)
	require.NoError(t, err)
	assert.Equal(t, "A", got)
	got, err = shared.Get(ctx, "session:b:cart")
	require.NoError(t, err)
	assert.Equal(t, "B", got)

	require.NoError(t, a.Close())
	assert.True(t, shared.Ping(ctx), "closing a view leaves the backend open")
}

func TestScopedStorageWatchUnsupported(t *testing.T) {
	db, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = Scoped(db, "session:a").Watch(context.Background(), CartKey)
	assert.ErrorIs(t, err, ErrWatchUnsupported)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Backend: BackendMemory}, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, s)
	require.NoError(t, s.Close())

	s, err = Open(ctx, Options{Backend: BackendFile, Dir: t.TempDir()}, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &FileStorage{}, s)
	require.NoError(t, s.Close())

	s, err = Open(ctx, Options{Backend: BackendSQLite, SQLitePath: ":memory:"}, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStorage{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Options{Backend: "etcd"}, testLogger())
	assert.Error(t, err)
}
