package services

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/norun9/bakery-storefront/cartstore"
)

const (
	// DefaultMaxSessions bounds how many carts are kept loaded at once.
	DefaultMaxSessions = 10000
	// DefaultSessionIdle is how long an unused cart stays loaded; it matches the
	// session cookie lifetime.
	DefaultSessionIdle = cookieMaxAge * time.Second
)

// Sessions hands out one cart Store per visitor session. Every Store persists into
// its own namespace of the shared storage and re-hydrates when another writer
// changes it. Stores are dropped, and their watchers stopped, when they sit idle
// for longer than the idle timeout or when the registry is full; the cart itself
// stays in storage and is loaded again on the next visit.
type Sessions struct {
	ctx     context.Context
	storage cartstore.Storage
	log     logrus.FieldLogger
	idle    time.Duration
	now     func() time.Time

	mu      sync.Mutex
	stores  *lru.Cache
	evicted []*cartstore.Store
	closed  bool
}

type session struct {
	store    *cartstore.Store
	lastUsed time.Time
}

// NewSessions creates a registry with the default limits. Watchers live until ctx
// is done, the session is evicted or Close is called.
func NewSessions(ctx context.Context, storage cartstore.Storage, log logrus.FieldLogger) *Sessions {
	return NewSessionsWithLimits(ctx, storage, log, DefaultMaxSessions, DefaultSessionIdle)
}

// NewSessionsWithLimits keeps at most maxSessions carts loaded and drops any cart
// unused for idle.
func NewSessionsWithLimits(ctx context.Context, storage cartstore.Storage, log logrus.FieldLogger, maxSessions int, idle time.Duration) *Sessions {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if idle <= 0 {
		idle = DefaultSessionIdle
	}
	s := &Sessions{
		ctx:     ctx,
		storage: storage,
		log:     log,
		idle:    idle,
		now:     time.Now,
	}
	// onEvict runs with s.mu held; stores are closed after it is released.
	s.stores, _ = lru.NewWithEvict(maxSessions, func(_, value interface{}) {
		s.evicted = append(s.evicted, value.(*session).store)
	})
	return s
}

// Namespace is the storage prefix of a session's keys.
func Namespace(sessionID string) string {
	return "session:" + sessionID
}

func (s *Sessions) persister(sessionID string) *cartstore.Persister {
	log := s.log.WithField("session", sessionID)
	return cartstore.NewPersister(cartstore.Scoped(s.storage, Namespace(sessionID)), log)
}

// Store returns the cart for sessionID, loading it from storage on first use.
func (s *Sessions) Store(ctx context.Context, sessionID string) *cartstore.Store {
	s.mu.Lock()
	st := s.lookupLocked(sessionID)
	if st == nil {
		st = cartstore.New(ctx, s.persister(sessionID), s.log.WithField("session", sessionID))
		if !s.closed {
			if err := st.Watch(s.ctx); err != nil {
				s.log.WithField("session", sessionID).WithError(err).Warn("cart will not follow changes from other writers")
			}
			s.stores.Add(sessionID, &session{store: st, lastUsed: s.now()})
		}
	}
	evicted := s.takeEvictedLocked()
	s.mu.Unlock()

	closeStores(evicted)
	return st
}

// Items returns the session's cart without loading it into the registry when it is
// not loaded already.
func (s *Sessions) Items(ctx context.Context, sessionID string) cartstore.Cart {
	s.mu.Lock()
	st := s.lookupLocked(sessionID)
	evicted := s.takeEvictedLocked()
	s.mu.Unlock()

	closeStores(evicted)
	if st != nil {
		return st.Items()
	}
	return s.persister(sessionID).Load(ctx)
}

// Touch marks sessionID as in use so it is not dropped for being idle.
func (s *Sessions) Touch(sessionID string) {
	s.mu.Lock()
	s.lookupLocked(sessionID)
	evicted := s.takeEvictedLocked()
	s.mu.Unlock()

	closeStores(evicted)
}

// lookupLocked expires idle sessions and returns the loaded store for sessionID,
// refreshing its last use. It returns nil when the session is not loaded.
func (s *Sessions) lookupLocked(sessionID string) *cartstore.Store {
	now := s.now()
	for {
		_, v, ok := s.stores.GetOldest()
		if !ok || now.Sub(v.(*session).lastUsed) < s.idle {
			break
		}
		s.stores.RemoveOldest()
	}

	v, ok := s.stores.Get(sessionID)
	if !ok {
		return nil
	}
	sess := v.(*session)
	sess.lastUsed = now
	return sess.store
}

func (s *Sessions) takeEvictedLocked() []*cartstore.Store {
	evicted := s.evicted
	s.evicted = nil
	return evicted
}

func closeStores(stores []*cartstore.Store) {
	for _, st := range stores {
		st.Close()
	}
}

// Len reports how many sessions are loaded.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stores.Len()
}

// Close stops every session watcher. The storage is left open.
func (s *Sessions) Close() {
	s.mu.Lock()
	s.closed = true
	s.stores.Purge()
	evicted := s.takeEvictedLocked()
	s.mu.Unlock()

	closeStores(evicted)
}
