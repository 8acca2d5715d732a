package cartstore

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norun9/bakery-storefront/errdefs"
)

func TestPersisterRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := NewPersister(NewMemoryStorage(0), testLogger())

	cart := Cart{
		{ID: "croissant", Name: "Croissant", Price: 1200, Image: "/img/croissant.jpg", Quantity: 2},
		{ID: "marraqueta", Name: "Marraqueta", Price: 300, Quantity: 10},
		{ID: "torta-mil-hojas", Name: "Torta mil hojas", Price: 24990, Image: "/img/milhojas.jpg", Quantity: 1},
	}
	require.NoError(t, p.Save(ctx, cart))

	if diff := cmp.Diff(cart, p.Load(ctx)); diff != "" {
		t.Errorf("Load(Save(cart)) mismatch (-want +got):\n%s", diff)
	}
}

func TestPersisterSavesEmptyCartAsList(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage(0)
	p := NewPersister(storage, testLogger())

	require.NoError(t, p.Save(ctx, nil))
	raw, err := storage.Get(ctx, CartKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)

	loaded := p.Load(ctx)
	assert.NotNil(t, loaded)
	assert.Empty(t, loaded)
}

func TestPersisterLoadDegradesToEmpty(t *testing.T) {
	tests := map[string]string{
		"not json":         `{"id":`,
		"object not list":  `{"id":"croissant"}`,
		"null":             `null`,
		"missing id":       `[{"name":"x","price":1,"quantity":1}]`,
		"zero quantity":    `[{"id":"a","price":1,"quantity":0}]`,
		"negative price":   `[{"id":"a","price":-1,"quantity":1}]`,
		"quantity too big": `[{"id":"a","price":1,"quantity":1000}]`,
		"price too big":    `[{"id":"a","price":1000000001,"quantity":1}]`,
		"duplicate id":     `[{"id":"a","price":1,"quantity":1},{"id":"a","price":1,"quantity":2}]`,
		"wrong field type": `[{"id":"a","price":"cheap","quantity":1}]`,
		"fractional units": `[{"id":"a","price":1,"quantity":1.5}]`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			storage := NewMemoryStorage(0)
			require.NoError(t, storage.Set(ctx, CartKey, raw))

			got := NewPersister(storage, testLogger()).Load(ctx)
			assert.Empty(t, got)
		})
	}
}

func TestPersisterLoadMissingKey(t *testing.T) {
	got := NewPersister(NewMemoryStorage(0), testLogger()).Load(context.Background())
	assert.Empty(t, got)
}

func TestPersisterSaveFailureIsWarning(t *testing.T) {
	p := NewPersister(NewMemoryStorage(8), testLogger())
	err := p.Save(context.Background(), Cart{{ID: "croissant", Price: 1200, Quantity: 1}})
	require.Error(t, err)
	assert.True(t, errdefs.IsPersistenceWarning(err))
}

func TestPersisterUsesScopedKey(t *testing.T) {
	ctx := context.Background()
	shared := NewMemoryStorage(0)
	p := NewPersister(Scoped(shared, "session:42"), testLogger())

	require.NoError(t, p.Save(ctx, Cart{{ID: "a", Price: 1, Quantity: 1}}))

	raw, err := shared.Get(ctx, "session:42:cart")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a","name":"","price":1,"quantity":1}]`, raw)

	_, err = shared.Get(ctx, CartKey)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
