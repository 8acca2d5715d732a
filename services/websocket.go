package services

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/norun9/bakery-storefront/cartstore"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type cartMessage struct {
	Type string   `json:"type"`
	Cart cartView `json:"cart"`
}

// cartFeedHandler streams the session's cart: once on connect and again after every
// change, whether made through this server or picked up from storage. Clients only
// listen; anything they send is discarded.
func (s *Server) cartFeedHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r, s.log)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	store := s.cart(r)

	// Only the latest cart matters, so a pending update is replaced by a newer one.
	updates := make(chan cartstore.Cart, 1)
	unsubscribe := store.Subscribe(func(c cartstore.Cart) {
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- c:
		default:
		}
	})
	defer unsubscribe()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.WithError(err).Debug("cart feed closed")
				}
				return
			}
		}
	}()
	defer func() {
		conn.Close()
		<-readDone
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := s.writeCart(conn, store.Items()); err != nil {
		log.WithError(err).Debug("cart feed write failed")
		return
	}
	for {
		select {
		case c := <-updates:
			if err := s.writeCart(conn, c); err != nil {
				log.WithError(err).Debug("cart feed write failed")
				return
			}
		case <-ticker.C:
			s.sessions.Touch(sessionID(r))
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-readDone:
			return
		case <-s.done:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		}
	}
}

func (s *Server) writeCart(conn *websocket.Conn, c cartstore.Cart) error {
	view, err := s.newCartView(c, 0)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(cartMessage{Type: "cart", Cart: view})
}
