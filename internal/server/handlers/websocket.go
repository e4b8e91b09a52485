// internal/server/handlers/websocket.go

package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// crowdStreamClient is one connected live-update subscriber.
type crowdStreamClient struct {
	conn          *websocket.Conn
	send          chan []byte
	subscriptions []*nats.Subscription
	logger        zerolog.Logger
}

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
		MaxMessageSize: 512,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// In production, this should be more restrictive
		return true
	},
}

// CrowdWebSocketHandler upgrades the connection and forwards crowd-update
// events from the event bus to the client. Clients are read-only; inbound
// traffic is only consumed for pong/close handling.
func CrowdWebSocketHandler(natsConn *nats.Conn, eventsTopic string, logger zerolog.Logger) http.HandlerFunc {
	if eventsTopic == "" {
		eventsTopic = "crowd"
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to upgrade to WebSocket")
			return
		}

		client := &crowdStreamClient{
			conn:   conn,
			send:   make(chan []byte, 256),
			logger: logger,
		}

		// Wildcard covers per-location updates and batch summaries.
		sub, err := natsConn.Subscribe(eventsTopic+".>", func(msg *nats.Msg) {
			select {
			case client.send <- msg.Data:
			default:
				// Slow consumer; drop rather than block the bus callback.
			}
		})
		if err != nil {
			logger.Warn().Err(err).Msg("failed to subscribe to crowd events")
			conn.Close()
			return
		}
		client.subscriptions = append(client.subscriptions, sub)

		go client.writePump()
		go client.readPump()

		logger.Info().Str("remote", r.RemoteAddr).Msg("new crowd stream connection")
	}
}

// readPump consumes inbound frames until the peer goes away.
func (c *crowdStreamClient) readPump() {
	config := DefaultWebSocketConfig()

	defer c.closeConnection()

	c.conn.SetReadLimit(config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("WebSocket error")
			}
			return
		}
	}
}

// writePump forwards queued events to the connection and keeps it alive
// with pings.
func (c *crowdStreamClient) writePump() {
	config := DefaultWebSocketConfig()
	ticker := time.NewTicker(config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// closeConnection unsubscribes from the event bus and closes the socket.
func (c *crowdStreamClient) closeConnection() {
	for _, sub := range c.subscriptions {
		sub.Unsubscribe()
	}
	c.subscriptions = nil

	c.conn.Close()
}
