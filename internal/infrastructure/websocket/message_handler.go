package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"bunkmate/internal/domain/entity"
	apperrors "bunkmate/pkg/errors"
	"bunkmate/pkg/logger"
)

const (
	MessageTypePing          = "ping"
	MessageTypePong          = "pong"
	MessageTypeJoinChatRoom  = "join_chat_room"
	MessageTypeLeaveChatRoom = "leave_chat_room"
	MessageTypeJoined        = "joined_chat_room"
	MessageTypeLeft          = "left_chat_room"
	MessageTypeFocus         = "focus"
	MessageTypeBlur          = "blur"
	MessageTypeNotification  = "notification"
	MessageTypeSnapshot      = "snapshot"
	MessageTypeError         = "error"
)

// ErrNotDelivered means no focused socket accepted a foreground notification.
var ErrNotDelivered = errors.New("no focused session accepted the notification")

// WSMessage is the envelope for every frame in both directions.
type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Kind      string      `json:"kind,omitempty"`
	ChatID    string      `json:"chat_id,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
}

type RoomData struct {
	Kind   string `json:"kind"`
	ChatID string `json:"chat_id"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HandleClientMessage processes one frame from a client.
func (m *Manager) HandleClientMessage(ctx context.Context, client *Client, messageBytes []byte) {
	var wsMessage WSMessage
	if err := json.Unmarshal(messageBytes, &wsMessage); err != nil {
		m.sendError(client, apperrors.CodeBadRequest, "Invalid message format")
		return
	}

	switch wsMessage.Type {
	case MessageTypePing:
		m.reply(client, MessageTypePong, map[string]string{"status": "alive"})

	case MessageTypeJoinChatRoom:
		m.handleJoinChatRoom(ctx, client, wsMessage)

	case MessageTypeLeaveChatRoom:
		m.handleLeaveChatRoom(client, wsMessage)

	case MessageTypeFocus:
		client.setFocused(true)

	case MessageTypeBlur:
		client.setFocused(false)

	default:
		logger.Debug("WebSocket: unknown message type '%s' from %s", wsMessage.Type, client.UserID)
		m.sendError(client, apperrors.CodeBadRequest, "Unknown message type")
	}
}

func roomOf(wsMessage WSMessage) (entity.ConversationRef, bool) {
	ref := entity.ConversationRef{
		Kind: entity.ConversationKind(wsMessage.Kind),
		ID:   wsMessage.ChatID,
	}
	if ref.Kind == "" {
		ref.Kind = entity.KindDirect
	}
	return ref, ref.Kind.Valid() && ref.ID != ""
}

func (m *Manager) handleJoinChatRoom(ctx context.Context, client *Client, wsMessage WSMessage) {
	ref, ok := roomOf(wsMessage)
	if !ok {
		m.sendError(client, apperrors.CodeValidation, "Missing or invalid kind/chat_id")
		return
	}

	client.mu.Lock()
	_, already := client.rooms[ref]
	if !already {
		client.joining[ref] = struct{}{}
	}
	client.mu.Unlock()
	if already {
		m.reply(client, MessageTypeJoined, RoomData{Kind: string(ref.Kind), ChatID: ref.ID})
		return
	}

	if err := m.watcher().Open(ctx, client.UserID, ref); err != nil {
		client.mu.Lock()
		delete(client.joining, ref)
		client.mu.Unlock()
		logger.Warn("WebSocket: %s could not join %s: %v", client.UserID, ref, err)
		if appErr, ok := apperrors.AsAppError(err); ok {
			m.sendError(client, appErr.Code, appErr.Message)
		} else {
			m.sendError(client, apperrors.CodeInternal, "Failed to join chat room")
		}
		return
	}

	client.mu.Lock()
	delete(client.joining, ref)
	if client.closed {
		client.mu.Unlock()
		m.watcher().Close(client.UserID, ref)
		return
	}
	client.rooms[ref] = struct{}{}
	client.mu.Unlock()

	logger.Debug("WebSocket: %s joined %s", client.UserID, ref)
	m.reply(client, MessageTypeJoined, RoomData{Kind: string(ref.Kind), ChatID: ref.ID})
}

func (m *Manager) handleLeaveChatRoom(client *Client, wsMessage WSMessage) {
	ref, ok := roomOf(wsMessage)
	if !ok {
		m.sendError(client, apperrors.CodeValidation, "Missing or invalid kind/chat_id")
		return
	}

	client.mu.Lock()
	_, joined := client.rooms[ref]
	delete(client.rooms, ref)
	client.mu.Unlock()

	if joined {
		m.watcher().Close(client.UserID, ref)
	}
	m.reply(client, MessageTypeLeft, RoomData{Kind: string(ref.Kind), ChatID: ref.ID})
}

func (m *Manager) reply(client *Client, messageType string, data interface{}) {
	frame, err := encode(messageType, data)
	if err != nil {
		logger.Error("WebSocket: failed to encode %s for %s: %v", messageType, client.UserID, err)
		return
	}
	if !client.enqueue(frame) {
		logger.Warn("WebSocket: send buffer full for %s, dropping %s", client.UserID, messageType)
	}
}

func (m *Manager) sendError(client *Client, code, message string) {
	m.reply(client, MessageTypeError, ErrorData{Code: code, Message: message})
}
