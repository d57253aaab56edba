package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	ws "bunkmate/internal/infrastructure/websocket"
	"bunkmate/pkg/logger"
	"bunkmate/pkg/response"
)

type WebSocketHandler struct {
	wsManager *ws.Manager
	upgrader  gorillaws.Upgrader
	// base outlives the upgrade request; viewers opened from the socket use it.
	base context.Context
}

// NewWebSocketHandler accepts upgrades from allowedOrigin only. An empty origin allows any.
func NewWebSocketHandler(base context.Context, wsManager *ws.Manager, allowedOrigin string) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager: wsManager,
		base:      base,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigin),
		},
	}
}

func originChecker(allowedOrigin string) func(r *http.Request) bool {
	allowed := strings.TrimSuffix(allowedOrigin, "/")
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if allowed == "" || origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Scheme+"://"+u.Host == allowed
	}
}

// HandleWebSocket runs behind AuthMiddleware, so uid is already set.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already replied with an HTTP error
		logger.Warn("WebSocket upgrade failed for %s: %v", userID, err)
		return nil
	}

	client := ws.NewClient(userID, conn)
	h.wsManager.Register(client)

	go client.WritePump()
	go client.ReadPump(h.base, h.wsManager)

	return nil
}
