// internal/server/handlers/websocket.go

package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// WebSocketConfig contains configuration for WebSocket connections
type WebSocketConfig struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Send pings to peer with this period
	PingPeriod time.Duration

	// Maximum message size allowed from peer
	MaxMessageSize int64
}

// DefaultWebSocketConfig returns the default WebSocket configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
		MaxMessageSize: 4096,
	}
}

// WebSocketUpgrader is used to upgrade HTTP connections to WebSocket
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// In production, this should be more restrictive
		return true
	},
}

// streamClient is one connected live-feed subscriber.
type streamClient struct {
	conn *websocket.Conn
	send chan []byte
	sub  *nats.Subscription
}

// NarrativeStreamHandler bridges the narrative event subjects on NATS to a
// WebSocket client, so dashboards can follow detections, status transitions
// and mutations live.
func NarrativeStreamHandler(natsConn *nats.Conn, eventsTopic string) http.HandlerFunc {
	cfg := DefaultWebSocketConfig()

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
			return
		}

		client := &streamClient{
			conn: conn,
			send: make(chan []byte, 256),
		}

		// Fan every narrative event into this client's send queue; a client
		// that cannot keep up is dropped rather than blocking the bus.
		sub, err := natsConn.Subscribe(eventsTopic+".>", func(msg *nats.Msg) {
			select {
			case client.send <- msg.Data:
			default:
				log.Warn().Str("subject", msg.Subject).Msg("Dropping event for slow WebSocket client")
			}
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to subscribe to narrative events")
			conn.Close()
			return
		}
		client.sub = sub

		go client.writePump(cfg)
		go client.readPump(cfg)
	}
}

// writePump forwards queued events to the peer and keeps the connection
// alive with pings.
func (c *streamClient) writePump(cfg WebSocketConfig) {
	ticker := time.NewTicker(cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages and tears down on disconnect. The feed
// is one-way; reads exist only to process control frames.
func (c *streamClient) readPump(cfg WebSocketConfig) {
	defer func() {
		// Unsubscribe before closing the connection; the send channel is
		// left open because a late NATS callback may still be delivering.
		c.sub.Unsubscribe()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("WebSocket closed unexpectedly")
			}
			return
		}
	}
}
