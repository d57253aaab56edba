package handler

import (
	"github.com/labstack/echo/v4"

	"bunkmate/internal/adapter/api/middleware"
	"bunkmate/pkg/errors"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Chat      *ChatHandler
	Group     *GroupHandler
	User      *UserHandler
	Device    *DeviceHandler
	WebSocket *WebSocketHandler
	Health    *HealthHandler
}

func callerID(c echo.Context) (string, error) {
	uid := middleware.UID(c)
	if uid == "" {
		return "", errors.Unauthorized("Authentication required", nil)
	}
	return uid, nil
}

type messageTextRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

type reactionRequest struct {
	Emoji string `json:"emoji" validate:"required,max=16"`
}
