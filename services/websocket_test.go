package services

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norun9/bakery-storefront/cartstore"
)

func dialCartFeed(t *testing.T, env *testEnv, c *http.Client) *websocket.Conn {
	t.Helper()
	// The first request issues the session cookie.
	env.do(t, c, http.MethodGet, "/api/cart", nil, nil)

	header := http.Header{}
	header.Set("Cookie", cookieSessionID+"="+env.sessionID(t, c))
	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/api/cart/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readCart(t *testing.T, conn *websocket.Conn) cartView {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg cartMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "cart", msg.Type)
	return msg.Cart
}

func TestCartFeed(t *testing.T) {
	env := newTestEnv(t, cartstore.NewMemoryStorage(0))
	c := env.client(t)
	conn := dialCartFeed(t, env, c)

	initial := readCart(t, conn)
	assert.Empty(t, initial.Items)

	env.do(t, c, http.MethodPost, "/api/cart/items", map[string]interface{}{"productId": "croissant", "quantity": 2}, nil)
	update := readCart(t, conn)
	assert.Equal(t, 2, update.ItemsCount)
	assert.Equal(t, int64(2400), update.Total)

	env.do(t, c, http.MethodDelete, "/api/cart", nil, nil)
	update = readCart(t, conn)
	assert.Empty(t, update.Items)
}

func TestCartFeedFollowsOtherWriters(t *testing.T) {
	storage := cartstore.NewMemoryStorage(0)
	env := newTestEnv(t, storage)
	c := env.client(t)
	conn := dialCartFeed(t, env, c)
	readCart(t, conn)

	// Another process sharing the storage writes this session's cart.
	other := cartstore.NewPersister(cartstore.Scoped(storage, Namespace(env.sessionID(t, c))), testLogger())
	require.NoError(t, other.Save(context.Background(), cartstore.Cart{
		{ID: "hallulla", Name: "Hallulla", Price: 300, Quantity: 5},
	}))

	update := readCart(t, conn)
	require.Len(t, update.Items, 1)
	assert.Equal(t, "hallulla", update.Items[0].ID)
	assert.Equal(t, int64(1500), update.Total)

	var view cartView
	env.do(t, c, http.MethodGet, "/api/cart", nil, &view)
	assert.Equal(t, 5, view.ItemsCount)
}

func TestCartFeedOnlySeesOwnSession(t *testing.T) {
	env := newTestEnv(t, cartstore.NewMemoryStorage(0))
	alice, bob := env.client(t), env.client(t)
	conn := dialCartFeed(t, env, alice)
	readCart(t, conn)

	env.do(t, bob, http.MethodPost, "/api/cart/items", map[string]interface{}{"productId": "croissant"}, nil)
	env.do(t, alice, http.MethodPost, "/api/cart/items", map[string]interface{}{"productId": "marraqueta"}, nil)

	update := readCart(t, conn)
	require.Len(t, update.Items, 1)
	assert.Equal(t, "marraqueta", update.Items[0].ID)
}
