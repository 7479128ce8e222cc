package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"dialog-analyzer/pkg/analyzer"
	"dialog-analyzer/pkg/metrics"
)

// ResultMessage is pushed to WebSocket clients for every completed analysis
type ResultMessage struct {
	AnalysisID string                    `json:"analysis_id"`
	File       string                    `json:"file"`
	Statistics analyzer.DialogStatistics `json:"statistics"`
	Timestamp  time.Time                 `json:"timestamp"`
}

// Client represents a connected WebSocket client
type Client struct {
	hub    *ResultsHub
	conn   *websocket.Conn
	send   chan []byte
	logger *logrus.Logger
}

// ResultsHub manages WebSocket clients and broadcasts analysis results
type ResultsHub struct {
	logger     *logrus.Logger
	clients    map[*Client]bool
	broadcast  chan *ResultMessage
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
}

// WebSocketUpgrader configures the WebSocket connection
var WebSocketUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewResultsHub creates a new results hub
func NewResultsHub(logger *logrus.Logger) *ResultsHub {
	return &ResultsHub{
		logger:     logger,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *ResultMessage, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the results hub
func (h *ResultsHub) Run(ctx context.Context) {
	h.logger.Info("Starting WebSocket results hub")

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Shutting down WebSocket results hub")
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			if metrics.GetRegistry() != nil {
				metrics.WSClientsConnected.Inc()
			}
			h.logger.Info("Client connected to WebSocket")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				if metrics.GetRegistry() != nil {
					metrics.WSClientsConnected.Dec()
				}
				h.logger.Info("Client disconnected from WebSocket")
			}
			h.mutex.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				h.logger.WithError(err).Error("Failed to marshal result message")
				continue
			}

			h.mutex.RLock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// BroadcastResult queues an analysis result for all connected clients.
// Drops the message when the hub is saturated rather than blocking the
// analysis path.
func (h *ResultsHub) BroadcastResult(message *ResultMessage) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("Results hub broadcast queue full, dropping message")
	}
}

// ClientCount returns the number of connected clients
func (h *ResultsHub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// ServeWs handles WebSocket requests from clients
func (h *ResultsHub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := WebSocketUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade connection to WebSocket")
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		logger: h.logger,
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(60 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages and detects disconnects
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
