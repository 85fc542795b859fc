package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"portal-server/internal/models"
	"portal-server/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// liveClient is one WebSocket subscriber of the live-calls feed.
type liveClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Compile-time check: the manager feeds the active-calls poller.
var _ service.Broadcaster = (*LiveConnectionManager)(nil)

// LiveConnectionManager tracks live-feed subscribers and fans frames
// out to them.
type LiveConnectionManager struct {
	clients    map[string]*liveClient
	register   chan *liveClient
	unregister chan string
	mu         sync.RWMutex
	logger     zerolog.Logger
}

// NewLiveConnectionManager creates and starts the connection manager.
func NewLiveConnectionManager(logger zerolog.Logger) *LiveConnectionManager {
	m := &LiveConnectionManager{
		clients:    make(map[string]*liveClient),
		register:   make(chan *liveClient),
		unregister: make(chan string),
		logger:     logger.With().Str("component", "live_manager").Logger(),
	}
	go m.run()
	return m
}

func (m *LiveConnectionManager) run() {
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			m.clients[client.id] = client
			m.mu.Unlock()
			liveClientsGauge.Inc()
			m.logger.Info().Str("clientId", client.id).Msg("Live feed client registered")

		case id := <-m.unregister:
			m.mu.Lock()
			if client, ok := m.clients[id]; ok {
				delete(m.clients, id)
				close(client.send)
				liveClientsGauge.Dec()
				m.logger.Info().Str("clientId", id).Msg("Live feed client unregistered")
			}
			m.mu.Unlock()
		}
	}
}

// Broadcast queues a frame for every connected client. Clients whose
// send queue is full skip the frame; the next poll supersedes it anyway.
func (m *LiveConnectionManager) Broadcast(message []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, client := range m.clients {
		select {
		case client.send <- message:
		default:
			m.logger.Warn().Str("clientId", id).Msg("Send queue full, dropping frame")
		}
	}
}

// ClientCount reports the number of connected subscribers.
func (m *LiveConnectionManager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// LiveHandler upgrades portal sessions to the live-calls WebSocket.
type LiveHandler struct {
	manager  *LiveConnectionManager
	tokens   *service.TokenManager
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewLiveHandler creates the WebSocket handler for the live feed.
func NewLiveHandler(manager *LiveConnectionManager, tokens *service.TokenManager, logger zerolog.Logger) *LiveHandler {
	return &LiveHandler{
		manager: manager,
		tokens:  tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser origin filtering is handled by the CORS layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.With().Str("component", "live_handler").Logger(),
	}
}

// RegisterRoutes mounts the WebSocket endpoint.
func (h *LiveHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/live/ws", h.serveWS)
}

func (h *LiveHandler) serveWS(c *gin.Context) {
	if !h.tokens.Authenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Code: models.ErrCodeUnauthenticated, Message: "Not authenticated"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &liveClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 8),
	}
	clientLogger := h.logger.With().Str("clientId", client.id).Logger()

	h.manager.register <- client

	go client.writePump(h.manager, clientLogger)
	go client.readPump(h.manager, clientLogger)
}

// readPump drains the connection. The feed is push-only; inbound frames
// are ignored, the pump only keeps pong handling alive.
func (c *liveClient) readPump(manager *LiveConnectionManager, logger zerolog.Logger) {
	defer func() {
		manager.unregister <- c.id
		_ = c.conn.Close()
		logger.Debug().Msg("readPump finished")
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn().Err(err).Msg("WebSocket read error")
			} else {
				logger.Debug().Msg("WebSocket connection closed")
			}
			break
		}
		logger.Warn().Bytes("message", message).Msg("Received unexpected message from client (ignored)")
	}
}

// writePump pushes queued frames and pings to the connection.
func (c *liveClient) writePump(manager *LiveConnectionManager, logger zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		logger.Debug().Msg("writePump finished")
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Error().Err(err).Msg("Failed to write message")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Warn().Err(err).Msg("Failed to send ping")
				return
			}
		}
	}
}
