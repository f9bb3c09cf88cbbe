package hub

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Streams are server-to-client; anything the client sends is discarded.
	maxMessageSize = 512
)

// Serve subscribes userID, pumps hub events to conn and blocks until the
// connection closes.
func (h *Hub) Serve(conn *websocket.Conn, userID uuid.UUID) {
	client := h.Subscribe(userID)
	log := h.log.With().Str("user_id", userID.String()).Logger()
	log.Debug().Msg("stream opened")

	done := make(chan struct{})
	go func() {
		defer close(done)
		readPump(conn, log)
	}()

	writePump(conn, client, done, log)
	h.Unsubscribe(userID, client)
	conn.Close()
	<-done
	log.Debug().Msg("stream closed")
}

// readPump consumes control frames so pongs extend the deadline. It returns
// when the peer goes away.
func readPump(conn *websocket.Conn, log zerolog.Logger) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("stream read error")
			}
			return
		}
	}
}

// writePump sends queued events and pings until the queue closes, the reader
// stops or a write fails.
func writePump(conn *websocket.Conn, client Client, done <-chan struct{}, log zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn().Err(err).Msg("stream write error")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Msg("stream ping error")
				return
			}
		case <-done:
			return
		}
	}
}
