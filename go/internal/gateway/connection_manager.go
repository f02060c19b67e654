package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/wheelraffle/go/internal/raffle/events"
)

// ErrBroadcastQueueFull is returned by Publish when the broadcast buffer is saturated.
var ErrBroadcastQueueFull = errors.New("gateway: broadcast channel full")

// SnapshotProvider supplies the current raffle state for a newly connected overlay.
type SnapshotProvider interface {
	SnapshotEvent(ctx context.Context, channelID string) (*events.Event, error)
}

// ConnectionManager manages overlay WebSocket connections per channel
type ConnectionManager struct {
	// Connection pools organized by channel ID
	channelConnections map[string]map[*Connection]bool
	mu                 sync.RWMutex

	upgrader  websocket.Upgrader
	config    ConnectionConfig
	snapshots SnapshotProvider

	broadcastCh chan *events.Event
}

// Connection represents a WebSocket connection to an overlay
type Connection struct {
	ID        string
	ChannelID string
	Conn      *websocket.Conn
	Send      chan []byte
	Manager   *ConnectionManager

	ConnectedAt time.Time
	lastPing    atomic.Int64 // unix nanos
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	BroadcastBuffer int
	SnapshotTimeout time.Duration
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		SendBufferSize:  64,
		BroadcastBuffer: 1000,
		SnapshotTimeout: 2 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			// overlays are loaded by streaming software from arbitrary origins
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager. snapshots may be nil.
func NewConnectionManager(config ConnectionConfig, snapshots SnapshotProvider) *ConnectionManager {
	return &ConnectionManager{
		channelConnections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		snapshots:   snapshots,
		broadcastCh: make(chan *events.Event, config.BroadcastBuffer),
	}
}

// Start processes broadcasts until ctx is done, then closes every connection.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.CloseAll()
			return
		case event := <-cm.broadcastCh:
			cm.handleBroadcast(event)
		}
	}
}

// Publish queues an event for every overlay connected to the event's channel.
func (cm *ConnectionManager) Publish(ctx context.Context, event *events.Event) error {
	select {
	case cm.broadcastCh <- event:
		return nil
	default:
		log.Warn().Str("channel_id", event.ChannelID).Str("event_type", string(event.Type)).
			Msg("broadcast channel full, dropping message")
		return ErrBroadcastQueueFull
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, channelID string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		ChannelID:   channelID,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}
	connection.lastPing.Store(time.Now().UnixNano())

	// queue the snapshot before registering so it precedes any broadcast
	cm.sendSnapshot(r.Context(), connection)
	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("channel_id", channelID).
		Msg("overlay connection established")

	return nil
}

func (cm *ConnectionManager) sendSnapshot(ctx context.Context, conn *Connection) {
	if cm.snapshots == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, cm.config.SnapshotTimeout)
	defer cancel()

	event, err := cm.snapshots.SnapshotEvent(ctx, conn.ChannelID)
	if err != nil {
		log.Warn().Err(err).Str("channel_id", conn.ChannelID).Msg("failed to load raffle snapshot")
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal snapshot")
		return
	}
	conn.Send <- data
}

// registerConnection adds a connection to the manager
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.channelConnections[conn.ChannelID] == nil {
		cm.channelConnections[conn.ChannelID] = make(map[*Connection]bool)
	}
	cm.channelConnections[conn.ChannelID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("channel_id", conn.ChannelID).
		Int("total_connections", len(cm.channelConnections[conn.ChannelID])).
		Msg("connection registered")
}

// unregisterConnection removes a connection from the manager
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if connections, exists := cm.channelConnections[conn.ChannelID]; exists {
		if _, exists := connections[conn]; exists {
			delete(connections, conn)
			close(conn.Send)

			if len(connections) == 0 {
				delete(cm.channelConnections, conn.ChannelID)
			}

			log.Info().
				Str("connection_id", conn.ID).
				Str("channel_id", conn.ChannelID).
				Msg("connection unregistered")
		}
	}
}

// CloseAll unregisters every connection; write pumps send a close frame and exit.
func (cm *ConnectionManager) CloseAll() {
	cm.mu.RLock()
	var all []*Connection
	for _, connections := range cm.channelConnections {
		for conn := range connections {
			all = append(all, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range all {
		cm.unregisterConnection(conn)
	}
}

// handleBroadcast processes a broadcast message
func (cm *ConnectionManager) handleBroadcast(event *events.Event) {
	cm.mu.RLock()
	connections, exists := cm.channelConnections[event.ChannelID]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	// snapshot so the lock is not held while sending
	targetConnections := make([]*Connection, 0, len(connections))
	for conn := range connections {
		targetConnections = append(targetConnections, conn)
	}
	cm.mu.RUnlock()

	eventData, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targetConnections {
		cm.trySend(conn, eventData)
	}

	log.Debug().
		Str("event_type", string(event.Type)).
		Str("channel_id", event.ChannelID).
		Int("connections", len(targetConnections)).
		Msg("event broadcasted")
}

// trySend delivers to one connection and drops it when its buffer is full.
// The read lock keeps unregisterConnection from closing Send mid-send.
func (cm *ConnectionManager) trySend(conn *Connection, data []byte) {
	cm.mu.RLock()
	if !cm.channelConnections[conn.ChannelID][conn] {
		cm.mu.RUnlock()
		return
	}
	select {
	case conn.Send <- data:
		cm.mu.RUnlock()
	default:
		cm.mu.RUnlock()
		log.Warn().
			Str("connection_id", conn.ID).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}
}

// ConnectionStats summarises active connections
type ConnectionStats struct {
	TotalConnections   int            `json:"total_connections"`
	ActiveChannels     int            `json:"active_channels"`
	ChannelConnections map[string]int `json:"channel_connections"`
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		ActiveChannels:     len(cm.channelConnections),
		ChannelConnections: make(map[string]int, len(cm.channelConnections)),
	}
	for channelID, connections := range cm.channelConnections {
		stats.TotalConnections += len(connections)
		stats.ChannelConnections[channelID] = len(connections)
	}
	return stats
}

// LastPing is when the connection last sent a ping or received a pong.
func (c *Connection) LastPing() time.Time {
	return time.Unix(0, c.lastPing.Load())
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
			c.lastPing.Store(time.Now().UnixNano())
		}
	}
}

// readPump drains the socket so pongs and close frames are processed
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.lastPing.Store(time.Now().UnixNano())
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		// overlays are receive-only
		log.Debug().
			Str("connection_id", c.ID).
			Int("bytes", len(message)).
			Msg("ignoring client message")
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
