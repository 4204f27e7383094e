package hub

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pipesight/pipesight/pkg/log"
)

// writeWait bounds how long a single frame write may take before the
// connection is considered dead
const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Dashboard origins are deployment-specific; enforcement belongs
		// in the reverse proxy.
		return true
	},
}

// ServeWS upgrades an HTTP request to a WebSocket connection and binds
// it to a fresh hub client. The optional pipeline_id and stage query
// parameters preset the subscription filter. Reconnection is entirely
// client-driven: every upgrade is a new handle that re-synchronizes via
// the initial_state snapshot.
func ServeWS(h *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger := log.WithComponent("hub")
		logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	filter := Filter{
		PipelineID: r.URL.Query().Get("pipeline_id"),
		Stage:      r.URL.Query().Get("stage"),
	}

	client, err := h.Connect(filter)
	if err != nil {
		_ = conn.Close()
		return
	}

	go writePump(h, client, conn)
	go readPump(h, client, conn)
}

// writePump serializes all writes to the socket: hub messages from the
// client's buffer, pong answers requested by the read pump, and periodic
// ping frames. It exits when the client's channel is closed (disconnect)
// or a write fails.
func writePump(h *Hub, c *Client, conn *websocket.Conn) {
	ticker := time.NewTicker(h.HeartbeatInterval())
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.unregister(c, "write_error")
				return
			}

		case <-c.pong:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(Message{Type: MessagePong}); err != nil {
				h.unregister(c, "write_error")
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(Message{Type: MessagePing}); err != nil {
				h.unregister(c, "write_error")
				return
			}
		}
	}
}

// readPump consumes client frames: pong heartbeats reset the read
// deadline, subscribe messages replace the filter, pings get answered.
// A client that stays silent past the miss limit times out here and is
// disconnected.
func readPump(h *Hub, c *Client, conn *websocket.Conn) {
	logger := log.WithClientID(c.id)
	defer func() {
		h.unregister(c, "read_closed")
		_ = conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(h.PongWait()))

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug().Err(err).Msg("websocket read error")
			}
			return
		}

		// Any inbound frame proves liveness
		_ = conn.SetReadDeadline(time.Now().Add(h.PongWait()))

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case MessagePong:
			// Deadline already reset above
		case MessagePing:
			// The hub goroutine owns c.send and closes it on disconnect,
			// so the answer goes through the never-closed pong channel
			// and the write pump emits the frame.
			select {
			case c.pong <- struct{}{}:
			default:
			}
		case MessageSubscribe:
			var filter Filter
			if err := json.Unmarshal(msg.Data, &filter); err != nil {
				continue
			}
			c.Subscribe(filter)
		}
	}
}
