package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"bunkmate/internal/domain/entity"
	"bunkmate/internal/infrastructure/metrics"
	"bunkmate/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// RoomWatcher starts and stops live conversation views for a user.
// usecase.ViewerRegistry satisfies it.
type RoomWatcher interface {
	Open(ctx context.Context, viewerID string, ref entity.ConversationRef) error
	Close(viewerID string, ref entity.ConversationRef)
}

// Client is one socket of a signed-in user.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	mu      sync.Mutex
	focused bool
	rooms   map[entity.ConversationRef]struct{}
	// joining holds rooms whose join is still being authorized.
	joining map[entity.ConversationRef]struct{}
	closed  bool
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID:  userID,
		Conn:    conn,
		Send:    make(chan []byte, sendBuffer),
		focused: true,
		rooms:   make(map[entity.ConversationRef]struct{}),
		joining: make(map[entity.ConversationRef]struct{}),
	}
}

func (c *Client) isFocused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focused
}

func (c *Client) setFocused(focused bool) {
	c.mu.Lock()
	c.focused = focused
	c.mu.Unlock()
}

func (c *Client) follows(ref entity.ConversationRef) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, joined := c.rooms[ref]
	_, joining := c.joining[ref]
	return joined || joining
}

// enqueue never blocks; a full buffer drops the frame.
func (c *Client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// Manager tracks every open socket, grouped by user.
type Manager struct {
	rooms   RoomWatcher
	metrics *metrics.Metrics

	mutex   sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewManager(rooms RoomWatcher, m *metrics.Metrics) *Manager {
	return &Manager{
		rooms:   rooms,
		metrics: m,
		clients: make(map[string]map[*Client]struct{}),
	}
}

// SetRoomWatcher installs the watcher after construction, for wiring where the
// watcher itself depends on the manager.
func (m *Manager) SetRoomWatcher(rooms RoomWatcher) {
	m.mutex.Lock()
	m.rooms = rooms
	m.mutex.Unlock()
}

func (m *Manager) watcher() RoomWatcher {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.rooms
}

func (m *Manager) Register(client *Client) {
	m.mutex.Lock()
	sessions, ok := m.clients[client.UserID]
	if !ok {
		sessions = make(map[*Client]struct{})
		m.clients[client.UserID] = sessions
	}
	sessions[client] = struct{}{}
	m.mutex.Unlock()

	m.metrics.ConnectionOpened()
	logger.Debug("Client registered: %s", client.UserID)
}

// Unregister drops the socket and releases every room it had joined.
func (m *Manager) Unregister(client *Client) {
	m.mutex.Lock()
	sessions, ok := m.clients[client.UserID]
	if ok {
		if _, present := sessions[client]; !present {
			ok = false
		}
		delete(sessions, client)
		if len(sessions) == 0 {
			delete(m.clients, client.UserID)
		}
	}
	m.mutex.Unlock()
	if !ok {
		return
	}

	client.mu.Lock()
	joined := make([]entity.ConversationRef, 0, len(client.rooms))
	for ref := range client.rooms {
		joined = append(joined, ref)
	}
	client.rooms = make(map[entity.ConversationRef]struct{})
	client.mu.Unlock()

	rooms := m.watcher()
	for _, ref := range joined {
		rooms.Close(client.UserID, ref)
	}
	client.close()

	m.metrics.ConnectionClosed()
	logger.Debug("Client unregistered: %s", client.UserID)
}

func (m *Manager) sessionsOf(userID string) []*Client {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	sessions := make([]*Client, 0, len(m.clients[userID]))
	for client := range m.clients[userID] {
		sessions = append(sessions, client)
	}
	return sessions
}

// IsConnected reports whether userID has any open socket.
func (m *Manager) IsConnected(userID string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients[userID]) > 0
}

// IsFocused reports whether any of the user's sockets belongs to a focused window.
func (m *Manager) IsFocused(userID string) bool {
	for _, client := range m.sessionsOf(userID) {
		if client.isFocused() {
			return true
		}
	}
	return false
}

// ShowForeground pushes a notification frame to the user's focused sockets.
func (m *Manager) ShowForeground(userID string, payload entity.Payload) error {
	frame, err := encode(MessageTypeNotification, payload)
	if err != nil {
		return err
	}
	delivered := 0
	for _, client := range m.sessionsOf(userID) {
		if client.isFocused() && client.enqueue(frame) {
			delivered++
		}
	}
	if delivered == 0 {
		return ErrNotDelivered
	}
	return nil
}

// SendToUser writes a frame to every socket of the user.
func (m *Manager) SendToUser(userID string, messageType string, data interface{}) {
	frame, err := encode(messageType, data)
	if err != nil {
		logger.Error("WebSocket: failed to encode %s for %s: %v", messageType, userID, err)
		return
	}
	for _, client := range m.sessionsOf(userID) {
		if !client.enqueue(frame) {
			logger.Warn("WebSocket: send buffer full for %s, dropping %s", userID, messageType)
		}
	}
}

// PublishSnapshot sends a conversation's ordered log to the user's sockets that
// joined it, including joins that are still being authorized.
func (m *Manager) PublishSnapshot(userID string, snapshot entity.LiveSnapshot) {
	frame, err := encode(MessageTypeSnapshot, snapshot)
	if err != nil {
		logger.Error("WebSocket: failed to encode snapshot of %s for %s: %v", snapshot.Conversation, userID, err)
		return
	}
	for _, client := range m.sessionsOf(userID) {
		if !client.follows(snapshot.Conversation) {
			continue
		}
		if !client.enqueue(frame) {
			logger.Warn("WebSocket: send buffer full for %s, dropping snapshot of %s", userID, snapshot.Conversation)
		}
	}
}

// Revoke detaches the user's sockets from ref after the viewer lost access.
// The room is not released again on leave or disconnect.
func (m *Manager) Revoke(userID string, ref entity.ConversationRef) {
	for _, client := range m.sessionsOf(userID) {
		client.mu.Lock()
		_, joined := client.rooms[ref]
		delete(client.rooms, ref)
		client.mu.Unlock()

		if joined {
			m.reply(client, MessageTypeLeft, RoomData{Kind: string(ref.Kind), ChatID: ref.ID})
		}
	}
}

// CloseAll closes every socket, used on shutdown.
func (m *Manager) CloseAll() {
	m.mutex.RLock()
	var all []*Client
	for _, sessions := range m.clients {
		for client := range sessions {
			all = append(all, client)
		}
	}
	m.mutex.RUnlock()

	for _, client := range all {
		client.Conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		client.Conn.Close()
	}
}

func encode(messageType string, data interface{}) ([]byte, error) {
	return json.Marshal(WSMessage{
		Type:      messageType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// ReadPump reads frames until the connection drops, then unregisters the client.
func (c *Client) ReadPump(ctx context.Context, m *Manager) {
	defer func() {
		m.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket: read error for %s: %v", c.UserID, err)
			}
			return
		}
		m.HandleClientMessage(ctx, c, message)
	}
}

// WritePump drains Send onto the connection and keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("WebSocket: write error for %s: %v", c.UserID, err)
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
