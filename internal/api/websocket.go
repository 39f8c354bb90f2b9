package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"camera-fleet-engine/internal/types"
)

// WebSocketMessage is the frame sent to event stream subscribers
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// wsConnection represents one subscriber
type wsConnection struct {
	id   string
	conn *websocket.Conn
	send chan WebSocketMessage
}

// WebSocketManager broadcasts engine events (alert raised, for now) to any
// number of subscribers. It implements the notify.Notifier interface so the
// fleet manager can register it as an alert sink.
type WebSocketManager struct {
	mu          sync.RWMutex
	connections map[string]*wsConnection
	upgrader    websocket.Upgrader
	logger      *logrus.Logger

	broadcast  chan WebSocketMessage
	register   chan *wsConnection
	unregister chan *wsConnection
	done       chan struct{}

	pingInterval time.Duration
	writeTimeout time.Duration
}

// NewWebSocketManager creates a new websocket manager
func NewWebSocketManager(logger *logrus.Logger) *WebSocketManager {
	return &WebSocketManager{
		connections: make(map[string]*wsConnection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:       logger,
		broadcast:    make(chan WebSocketMessage, 256),
		register:     make(chan *wsConnection),
		unregister:   make(chan *wsConnection),
		done:         make(chan struct{}),
		pingInterval: 30 * time.Second,
		writeTimeout: 10 * time.Second,
	}
}

// Start launches the broadcast loop
func (wsm *WebSocketManager) Start(ctx context.Context) {
	go wsm.run(ctx)
}

// Stop closes all connections and halts the broadcast loop
func (wsm *WebSocketManager) Stop() {
	close(wsm.done)
}

func (wsm *WebSocketManager) run(ctx context.Context) {
	ticker := time.NewTicker(wsm.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-wsm.done:
			wsm.closeAll()
			return
		case conn := <-wsm.register:
			wsm.mu.Lock()
			wsm.connections[conn.id] = conn
			wsm.mu.Unlock()
			wsm.logger.WithField("connection_id", conn.id).Debug("WebSocket subscriber connected")
		case conn := <-wsm.unregister:
			wsm.mu.Lock()
			if _, ok := wsm.connections[conn.id]; ok {
				delete(wsm.connections, conn.id)
				close(conn.send)
			}
			wsm.mu.Unlock()
		case msg := <-wsm.broadcast:
			wsm.mu.RLock()
			for _, conn := range wsm.connections {
				select {
				case conn.send <- msg:
				default:
					// Slow subscriber, drop the frame rather than block the loop
				}
			}
			wsm.mu.RUnlock()
		case <-ticker.C:
			wsm.ping()
		}
	}
}

func (wsm *WebSocketManager) ping() {
	wsm.mu.RLock()
	defer wsm.mu.RUnlock()
	for _, conn := range wsm.connections {
		conn.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsm.writeTimeout))
	}
}

func (wsm *WebSocketManager) closeAll() {
	wsm.mu.Lock()
	defer wsm.mu.Unlock()
	for id, conn := range wsm.connections {
		conn.conn.Close()
		close(conn.send)
		delete(wsm.connections, id)
	}
}

// NotifyAlert broadcasts a raised alert to all subscribers. It implements
// the notify.Notifier interface.
func (wsm *WebSocketManager) NotifyAlert(_ context.Context, dev types.Device, alert types.Alert) error {
	select {
	case wsm.broadcast <- WebSocketMessage{
		Type:      "alert",
		Timestamp: time.Now().UTC(),
		Data: map[string]interface{}{
			"alert":      alert,
			"deviceName": dev.Name,
			"zone":       dev.Zone,
		},
	}:
	default:
		// Broadcast buffer full; the websocket stream is best-effort
	}
	return nil
}

// HandleConnection upgrades an HTTP request to a websocket subscription
func (wsm *WebSocketManager) HandleConnection(w http.ResponseWriter, r *http.Request) {
	ws, err := wsm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wsm.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	conn := &wsConnection{
		id:   uuid.NewString(),
		conn: ws,
		send: make(chan WebSocketMessage, 64),
	}
	wsm.register <- conn

	go wsm.writePump(conn)
	go wsm.readPump(conn)
}

func (wsm *WebSocketManager) writePump(conn *wsConnection) {
	for msg := range conn.send {
		conn.conn.SetWriteDeadline(time.Now().Add(wsm.writeTimeout))
		if err := conn.conn.WriteJSON(msg); err != nil {
			wsm.logger.WithError(err).WithField("connection_id", conn.id).Debug("WebSocket write failed")
			break
		}
	}
	conn.conn.Close()
}

// readPump drains client frames so control messages are processed and
// disconnects are detected.
func (wsm *WebSocketManager) readPump(conn *wsConnection) {
	defer func() {
		// After Stop the broadcast loop no longer drains unregister
		select {
		case wsm.unregister <- conn:
		case <-wsm.done:
		}
	}()
	for {
		if _, _, err := conn.conn.ReadMessage(); err != nil {
			return
		}
	}
}
