package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/storefront-sync/internal/logger"
	"github.com/example/storefront-sync/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// The default CheckOrigin rejects browsers whose Origin host differs from
// the request Host.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Stream pushes the caller's session state over a websocket: once on
// connect and again after every change. The socket closes when the
// session does.
func (h *Handlers) Stream(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		respondErr(w, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	log := logger.Component("Stream").WithField("uid", sess.Identity().UID)

	// Only the newest state matters; a slow client skips intermediate ones.
	updates := make(chan session.State, 1)
	unsubscribe := sess.Subscribe(func(st session.State) {
		select {
		case <-updates:
		default:
		}
		updates <- st
	})
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case st := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(st); err != nil {
				log.WithError(err).Debug("stream write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sess.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "signed out"),
				time.Now().Add(writeWait))
			return
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
