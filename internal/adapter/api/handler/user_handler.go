package handler

import (
	"github.com/labstack/echo/v4"

	"bunkmate/internal/usecase"
	"bunkmate/pkg/errors"
	"bunkmate/pkg/response"
)

type UserHandler struct {
	userUseCase *usecase.UserUseCase
	chatUseCase *usecase.DirectChatUseCase
}

func NewUserHandler(userUseCase *usecase.UserUseCase, chatUseCase *usecase.DirectChatUseCase) *UserHandler {
	return &UserHandler{
		userUseCase: userUseCase,
		chatUseCase: chatUseCase,
	}
}

type setNicknameRequest struct {
	Nickname string `json:"nickname" validate:"max=50"`
}

func (h *UserHandler) GetProfile(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	user, err := h.userUseCase.GetProfile(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, user)
}

// SetNickname sets (or clears, with an empty nickname) the caller's name for a friend.
func (h *UserHandler) SetNickname(c echo.Context) error {
	var req setNicknameRequest
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

	message, err := h.chatUseCase.SetNickname(c.Request().Context(), uid, c.Param("friendId"), req.Nickname)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, message)
}

func (h *UserHandler) RemoveFriend(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.userUseCase.RemoveFriend(c.Request().Context(), uid, c.Param("friendId")); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"removed": c.Param("friendId")})
}
