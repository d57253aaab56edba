package handler

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"bunkmate/internal/domain/entity"
	"bunkmate/pkg/errors"
	"bunkmate/pkg/response"
)

// TokenRegistry stores and forgets a user's push delivery token.
type TokenRegistry interface {
	Register(ctx context.Context, token *entity.DeliveryToken) error
	Invalidate(ctx context.Context, userID string) error
}

type DeviceHandler struct {
	tokens TokenRegistry
	now    func() time.Time
}

func NewDeviceHandler(tokens TokenRegistry) *DeviceHandler {
	return &DeviceHandler{
		tokens: tokens,
		now:    time.Now,
	}
}

type registerDeviceRequest struct {
	Kind  string `json:"kind" validate:"required,oneof=fcm webpush"`
	Value string `json:"value" validate:"required,max=4096"`
}

// RegisterDevice replaces the caller's delivery token.
func (h *DeviceHandler) RegisterDevice(c echo.Context) error {
	var req registerDeviceRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	uid, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	token := &entity.DeliveryToken{
		UserID:    uid,
		Kind:      entity.TokenKind(req.Kind),
		Value:     req.Value,
		UpdatedAt: h.now().UTC(),
	}
	if err := h.tokens.Register(c.Request().Context(), token); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"kind": req.Kind})
}

func (h *DeviceHandler) UnregisterDevice(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.tokens.Invalidate(c.Request().Context(), uid); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]bool{"unregistered": true})
}
