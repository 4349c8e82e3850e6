// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/soothill/smart-home-manager/domain"
	"github.com/soothill/smart-home-manager/pkg/logger"
	"github.com/soothill/smart-home-manager/pkg/metrics"
)

const (
	clientSendBuffer = 16
	writeTimeout     = 10 * time.Second
	pongTimeout      = 60 * time.Second
	pingInterval     = 30 * time.Second
)

type hubClient struct {
	conn     *websocket.Conn
	send     chan []byte
	sensorID string
}

// ReadingHub streams every recorded reading to websocket clients. Clients
// may pass ?sensorId= to receive a single sensor's readings. Slow clients
// miss readings rather than delaying the recorder.
type ReadingHub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*hubClient]struct{}
	closed  bool
}

// NewReadingHub creates a hub. allowedOrigins restricts browser origins;
// empty accepts any origin.
func NewReadingHub(allowedOrigins []string) *ReadingHub {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &ReadingHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(origins) == 0 || origin == "" || origins[origin]
			},
		},
		clients: make(map[*hubClient]struct{}),
	}
}

// Publish sends a reading to every interested client
func (h *ReadingHub) Publish(reading domain.Reading) {
	payload, err := json.Marshal(readingRes(reading))
	if err != nil {
		logger.Error().Err(err).Str("sensor_id", reading.SensorID).Msg("Failed to encode reading for stream")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.sensorID != "" && c.sensorID != reading.SensorID {
			continue
		}
		select {
		case c.send <- payload:
		default:
			logger.Debug().Str("sensor_id", reading.SensorID).Msg("Dropping reading for slow stream client")
		}
	}
}

// ClientCount returns the number of connected clients
func (h *ReadingHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the connection and streams readings until the client
// goes away or the hub is closed
func (h *ReadingHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		writeError(w, http.StatusServiceUnavailable, "reading stream is shutting down")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Websocket upgrade failed")
		return
	}

	c := &hubClient{
		conn:     conn,
		send:     make(chan []byte, clientSendBuffer),
		sensorID: r.URL.Query().Get("sensorId"),
	}
	if !h.add(c) {
		_ = conn.Close()
		return
	}
	logger.Info().Str("remote_addr", r.RemoteAddr).Str("sensor_id", c.sensorID).Msg("Reading stream client connected")

	go h.writePump(c)
	h.readPump(c)
}

func (h *ReadingHub) add(c *hubClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	metrics.WebsocketClients.Set(float64(len(h.clients)))
	return true
}

func (h *ReadingHub) remove(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *ReadingHub) removeLocked(c *hubClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	metrics.WebsocketClients.Set(float64(len(h.clients)))
}

// readPump discards client messages and keeps the read deadline alive with
// pongs. It returns when the connection fails.
func (h *ReadingHub) readPump(c *hubClient) {
	defer h.remove(c)
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug().Err(err).Msg("Reading stream client closed unexpectedly")
			}
			return
		}
	}
}

func (h *ReadingHub) writePump(c *hubClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *hubClient) write(messageType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(messageType, data)
}

// Close disconnects every client and refuses new ones
func (h *ReadingHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}
