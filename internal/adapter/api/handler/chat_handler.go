package handler

import (
	"github.com/labstack/echo/v4"

	"bunkmate/internal/usecase"
	"bunkmate/pkg/errors"
	"bunkmate/pkg/response"
	"bunkmate/pkg/utils"
)

type ChatHandler struct {
	chatUseCase *usecase.DirectChatUseCase
}

func NewChatHandler(chatUseCase *usecase.DirectChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type sendDirectMessageRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Text        string `json:"text" validate:"required,max=4000"`
	ReplyToID   string `json:"reply_to_id"`
}

// SendMessage posts to the direct chat with recipient_id, creating it on first send.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendDirectMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	message, err := h.chatUseCase.Send(c.Request().Context(), userID, usecase.SendDirectMessageInput{
		RecipientID: req.RecipientID,
		Text:        req.Text,
		ReplyToID:   req.ReplyToID,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

func (h *ChatHandler) GetUserChats(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	chats, err := h.chatUseCase.ListChats(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	page := utils.GetPaginationParams(c)
	return response.Paginated(c, utils.Paginate(chats, page), len(chats), page.Page, page.PageSize)
}

func (h *ChatHandler) GetChatByID(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	chat, err := h.chatUseCase.GetChat(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chat)
}

func (h *ChatHandler) GetChatMessages(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	messages, err := h.chatUseCase.Messages(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.List(c, messages, len(messages))
}

// MarkChatAsRead marks the newest message read when the caller is its recipient.
func (h *ChatHandler) MarkChatAsRead(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	marked, err := h.chatUseCase.MarkRead(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]bool{"marked": marked})
}

func (h *ChatHandler) EditMessage(c echo.Context) error {
	var req messageTextRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	message, err := h.chatUseCase.Edit(c.Request().Context(), c.Param("id"), c.Param("messageId"), userID, req.Text)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, message)
}

func (h *ChatHandler) DeleteMessage(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.chatUseCase.Delete(c.Request().Context(), c.Param("id"), c.Param("messageId"), userID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"deleted": c.Param("messageId")})
}

func (h *ChatHandler) React(c echo.Context) error {
	var req reactionRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	message, err := h.chatUseCase.React(c.Request().Context(), c.Param("id"), c.Param("messageId"), userID, req.Emoji)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, message)
}

// Unreact takes the emoji from the query string since DELETE carries no body.
func (h *ChatHandler) Unreact(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	message, err := h.chatUseCase.Unreact(c.Request().Context(), c.Param("id"), c.Param("messageId"), userID, c.QueryParam("emoji"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, message)
}
