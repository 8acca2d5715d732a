// Package cartstore holds the shopping cart: its records, the Store that owns the
// active cart, and the storage backends the cart is persisted to.
package cartstore

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Store is the single source of truth for one cart. Every mutation is applied in
// memory and written through the Persister before it returns. When the write fails
// the in-memory cart still changes and the error is a PersistenceWarning.
//
// Subscribers registered with Subscribe must not mutate the Store from inside the
// callback.
type Store struct {
	mu        sync.Mutex
	cart      Cart
	persister *Persister
	log       logrus.FieldLogger
	tracer    trace.Tracer

	// notifyMu is taken before mu is released so subscribers see changes in order.
	notifyMu sync.Mutex
	subMu    sync.Mutex
	subs     map[int]func(Cart)
	nextSub  int

	watchMu sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// New hydrates a Store from persister.
func New(ctx context.Context, persister *Persister, log logrus.FieldLogger) *Store {
	s := &Store{
		persister: persister,
		log:       log,
		tracer:    otel.Tracer("cartstore"),
		subs:      make(map[int]func(Cart)),
	}
	s.cart = persister.Load(ctx)
	return s
}

// Items returns a copy of the current cart.
func (s *Store) Items() Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

func (s *Store) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Total()
}

func (s *Store) ItemsCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.ItemsCount()
}

// AddItem adds quantity units of p, merging into an existing line for p.ID.
func (s *Store) AddItem(ctx context.Context, p Product, quantity int) (Cart, error) {
	ctx, span := s.tracer.Start(ctx, "AddItem", trace.WithAttributes(
		attribute.String("product.id", p.ID),
		attribute.Int("quantity", quantity),
	))
	defer span.End()

	return s.apply(ctx, span, func(c Cart) (Cart, bool, error) {
		next, err := AddLine(c, p, quantity)
		return next, err == nil, err
	})
}

// UpdateQuantity sets the line for id to quantity, removing it when quantity <= 0.
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) (Cart, error) {
	ctx, span := s.tracer.Start(ctx, "UpdateQuantity", trace.WithAttributes(
		attribute.String("product.id", id),
		attribute.Int("quantity", quantity),
	))
	defer span.End()

	return s.apply(ctx, span, func(c Cart) (Cart, bool, error) {
		next, err := SetQuantity(c, id, quantity)
		return next, err == nil, err
	})
}

// RemoveItem deletes the line for id. Removing an absent id changes nothing.
func (s *Store) RemoveItem(ctx context.Context, id string) (Cart, error) {
	ctx, span := s.tracer.Start(ctx, "RemoveItem", trace.WithAttributes(
		attribute.String("product.id", id),
	))
	defer span.End()

	return s.apply(ctx, span, func(c Cart) (Cart, bool, error) {
		next, removed := RemoveLine(c, id)
		return next, removed, nil
	})
}

// Clear empties the cart and persists the empty state.
func (s *Store) Clear(ctx context.Context) (Cart, error) {
	ctx, span := s.tracer.Start(ctx, "Clear")
	defer span.End()

	return s.apply(ctx, span, func(c Cart) (Cart, bool, error) {
		return Cart{}, true, nil
	})
}

// apply runs fn against the current cart. fn reports whether the cart changed; only
// changes are persisted and published.
func (s *Store) apply(ctx context.Context, span trace.Span, fn func(Cart) (Cart, bool, error)) (Cart, error) {
	s.mu.Lock()
	next, changed, err := fn(s.cart)
	if err != nil {
		view := s.cart.Clone()
		s.mu.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return view, err
	}
	if !changed {
		view := s.cart.Clone()
		s.mu.Unlock()
		return view, nil
	}

	s.cart = next
	saveErr := s.persister.Save(ctx, next)
	if saveErr != nil {
		span.RecordError(saveErr)
	}
	span.SetAttributes(attribute.Int("cart.items_count", next.ItemsCount()))

	s.notifyMu.Lock()
	s.mu.Unlock()
	s.publish(next)
	s.notifyMu.Unlock()

	return next.Clone(), saveErr
}

// Subscribe registers fn to receive the cart after every change, local or
// re-hydrated. The returned function unregisters it.
func (s *Store) Subscribe(fn func(Cart)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// publish must be called with notifyMu held.
func (s *Store) publish(c Cart) {
	s.subMu.Lock()
	fns := make([]func(Cart), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(c.Clone())
	}
}

// Watch starts re-hydrating from storage whenever another writer changes the cart
// key. Stored content replaces memory; a missing or corrupt value is ignored so the
// in-memory cart survives. Backends without change notification make Watch a no-op.
func (s *Store) Watch(ctx context.Context) error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.cancel != nil {
		return nil
	}

	w, ok := s.persister.Storage().(Watcher)
	if !ok {
		return nil
	}
	watchCtx, cancel := context.WithCancel(ctx)
	changes, err := w.Watch(watchCtx, s.persister.Key())
	if err != nil {
		cancel()
		if errors.Is(err, ErrWatchUnsupported) {
			s.log.Debug("storage has no change notification, cart will not re-hydrate")
			return nil
		}
		return errors.Wrap(err, "watch cart key")
	}

	s.cancel = cancel
	s.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		for range changes {
			s.Rehydrate(watchCtx)
		}
	}(s.done)
	return nil
}

// Rehydrate reloads the cart from storage and publishes it when it differs from
// memory. It reports whether the cart changed.
func (s *Store) Rehydrate(ctx context.Context) bool {
	s.mu.Lock()
	stored, err := s.persister.read(ctx)
	if err != nil {
		s.mu.Unlock()
		s.log.WithError(err).Warn("keeping in-memory cart, stored cart unavailable")
		return false
	}
	if stored.Equal(s.cart) {
		s.mu.Unlock()
		return false
	}
	s.cart = stored

	s.notifyMu.Lock()
	s.mu.Unlock()
	s.publish(stored)
	s.notifyMu.Unlock()

	s.log.WithField("items_count", stored.ItemsCount()).Debug("cart re-hydrated from storage")
	return true
}

// Close stops watching. The storage is not closed.
func (s *Store) Close() {
	s.watchMu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.watchMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
