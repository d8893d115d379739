// Package websocket streams job events to connected clients.
package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	gws "github.com/gorilla/websocket"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
	"github.com/lcalzada-xor/vmscout/internal/core/ports"
)

// WSMessage is the envelope of every pushed event.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WSManager broadcasts job transitions to every connected client.
// It implements ports.JobObserver.
type WSManager struct {
	upgrader gws.Upgrader
	allowed  map[string]struct{}
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*gws.Conn]struct{}
}

var _ ports.JobObserver = (*WSManager)(nil)

// NewWSManager creates a manager. Same-host origins are always accepted;
// allowedOrigins lists additional ones.
func NewWSManager(allowedOrigins []string, logger *slog.Logger) *WSManager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &WSManager{
		allowed: make(map[string]struct{}, len(allowedOrigins)),
		logger:  logger.With("component", "websocket"),
		clients: make(map[*gws.Conn]struct{}),
	}
	for _, o := range allowedOrigins {
		m.allowed[o] = struct{}{}
	}
	m.upgrader = gws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     m.checkOrigin,
	}
	return m
}

func (m *WSManager) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if _, ok := m.allowed[origin]; ok {
		return true
	}
	u, err := url.Parse(origin)
	if err == nil && u.Host == r.Host {
		return true
	}
	m.logger.Warn("rejected websocket origin", "origin", origin)
	return false
}

// HandleWebSocket upgrades the connection and registers the client.
func (m *WSManager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Debug("upgrade failed", "error", err)
		return
	}

	m.mu.Lock()
	m.clients[conn] = struct{}{}
	m.mu.Unlock()
	m.logger.Debug("client connected", "remote", r.RemoteAddr)

	go func() {
		defer m.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// JobUpdated pushes the job state to every client.
func (m *WSManager) JobUpdated(job domain.Job) {
	m.broadcast(WSMessage{Type: "job", Payload: job})
}

// ClientCount returns the number of connected clients.
func (m *WSManager) ClientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

func (m *WSManager) remove(conn *gws.Conn) {
	m.mu.Lock()
	delete(m.clients, conn)
	m.mu.Unlock()
	conn.Close()
}

func (m *WSManager) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		m.logger.Error("failed to encode message", "type", msg.Type, "error", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(gws.TextMessage, data); err != nil {
			conn.Close()
			delete(m.clients, conn)
		}
	}
}
