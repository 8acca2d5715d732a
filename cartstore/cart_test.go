package cartstore

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norun9/bakery-storefront/errdefs"
)

var (
	croissant  = Product{ID: "croissant", Name: "Croissant", Price: 1200, Category: "pastries", Image: "/img/croissant.jpg"}
	marraqueta = Product{ID: "marraqueta", Name: "Marraqueta", Price: 300, Category: "breads"}
	kuchen     = Product{ID: "kuchen-nuez", Name: "Kuchen de nuez", Price: 8900, Category: "cakes"}
)

func TestAddLineDistinctProducts(t *testing.T) {
	var c Cart
	for _, p := range []Product{croissant, marraqueta, kuchen} {
		var err error
		c, err = AddLine(c, p, 1)
		require.NoError(t, err)
	}

	want := Cart{
		{ID: "croissant", Name: "Croissant", Price: 1200, Image: "/img/croissant.jpg", Quantity: 1},
		{ID: "marraqueta", Name: "Marraqueta", Price: 300, Quantity: 1},
		{ID: "kuchen-nuez", Name: "Kuchen de nuez", Price: 8900, Quantity: 1},
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("cart mismatch (-want +got):\n%s", diff)
	}
}

func TestAddLineMergesSameProduct(t *testing.T) {
	c, err := AddLine(nil, croissant, 1)
	require.NoError(t, err)
	c, err = AddLine(c, marraqueta, 4)
	require.NoError(t, err)
	c, err = AddLine(c, croissant, 1)
	require.NoError(t, err)

	require.Len(t, c, 2)
	assert.Equal(t, "croissant", c[0].ID, "first-added line stays first")
	assert.Equal(t, 2, c[0].Quantity)
	assert.Equal(t, 6, c.ItemsCount())
	assert.Equal(t, int64(2*1200+4*300), c.Total())
}

func TestAddLineDoesNotMutateInput(t *testing.T) {
	before, err := AddLine(nil, croissant, 1)
	require.NoError(t, err)

	after, err := AddLine(before, croissant, 2)
	require.NoError(t, err)

	assert.Equal(t, 1, before[0].Quantity)
	assert.Equal(t, 3, after[0].Quantity)
}

func TestAddLineRejectsBadInput(t *testing.T) {
	c := Cart{{ID: "croissant", Name: "Croissant", Price: 1200, Quantity: 1}}

	_, err := AddLine(c, Product{Name: "No id", Price: 100}, 1)
	assert.True(t, errdefs.IsInvalidArgument(err))

	_, err = AddLine(c, croissant, 0)
	assert.True(t, errdefs.IsInvalidArgument(err))

	_, err = AddLine(c, croissant, -3)
	assert.True(t, errdefs.IsInvalidArgument(err))

	_, err = AddLine(c, Product{ID: "x", Price: -1}, 1)
	assert.True(t, errdefs.IsInvalidArgument(err))
}

func TestAddLineCapsQuantity(t *testing.T) {
	c, err := AddLine(nil, croissant, MaxQuantity)
	require.NoError(t, err)

	got, err := AddLine(c, croissant, 1)
	assert.True(t, errdefs.IsInvalidArgument(err))
	assert.Equal(t, c, got)

	_, err = AddLine(nil, croissant, math.MaxInt)
	assert.True(t, errdefs.IsInvalidArgument(err))

	c, err = AddLine(nil, croissant, MaxQuantity-1)
	require.NoError(t, err)
	_, err = AddLine(c, croissant, math.MaxInt)
	assert.True(t, errdefs.IsInvalidArgument(err), "a huge increment must not wrap around")

	_, err = AddLine(nil, Product{ID: "x", Price: MaxPrice + 1}, 1)
	assert.True(t, errdefs.IsInvalidArgument(err))
}

func TestSetQuantity(t *testing.T) {
	c := Cart{
		{ID: "croissant", Price: 1200, Quantity: 1},
		{ID: "marraqueta", Price: 300, Quantity: 2},
	}

	got, err := SetQuantity(c, "marraqueta", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, got[1].Quantity)
	assert.Equal(t, 2, c[1].Quantity)

	got, err = SetQuantity(c, "croissant", 0)
	require.NoError(t, err)
	assert.Equal(t, Cart{{ID: "marraqueta", Price: 300, Quantity: 2}}, got)

	got, err = SetQuantity(c, "croissant", -5)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = SetQuantity(c, "marraqueta", MaxQuantity+1)
	assert.True(t, errdefs.IsInvalidArgument(err))
	assert.Equal(t, c, got)

	got, err = SetQuantity(c, "baguette", 3)
	assert.True(t, errdefs.IsNotFound(err))
	assert.Equal(t, c, got)
}

func TestRemoveLine(t *testing.T) {
	c := Cart{
		{ID: "a", Price: 1, Quantity: 1},
		{ID: "b", Price: 2, Quantity: 1},
		{ID: "c", Price: 3, Quantity: 1},
	}

	got, removed := RemoveLine(c, "zzz")
	assert.False(t, removed)
	assert.Equal(t, c, got)

	got, removed = RemoveLine(c, "b")
	assert.True(t, removed)
	assert.Equal(t, Cart{{ID: "a", Price: 1, Quantity: 1}, {ID: "c", Price: 3, Quantity: 1}}, got)
	assert.Len(t, c, 3)
}

func TestEmptyCartTotals(t *testing.T) {
	var c Cart
	assert.Equal(t, int64(0), c.Total())
	assert.Equal(t, 0, c.ItemsCount())
	assert.True(t, c.Equal(Cart{}))
}
