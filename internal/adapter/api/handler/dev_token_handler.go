package handler

import (
	"github.com/labstack/echo/v4"

	"bunkmate/internal/infrastructure/firebase"
	"bunkmate/pkg/errors"
	"bunkmate/pkg/response"
)

// DevTokenHandler mints development tokens for local runs on the memory store.
type DevTokenHandler struct{}

func NewDevTokenHandler() *DevTokenHandler {
	return &DevTokenHandler{}
}

// GenerateToken returns a bearer token for ?uid= with an optional ?name=.
func (h *DevTokenHandler) GenerateToken(c echo.Context) error {
	uid := c.QueryParam("uid")
	if uid == "" {
		return response.Error(c, errors.Validation("uid is required"))
	}

	return response.Success(c, map[string]string{
		"token": firebase.DevToken(uid, c.QueryParam("name")),
		"uid":   uid,
	})
}
