package handler

import (
	"github.com/labstack/echo/v4"

	"bunkmate/internal/domain/entity"
	"bunkmate/internal/usecase"
	"bunkmate/pkg/errors"
	"bunkmate/pkg/response"
	"bunkmate/pkg/utils"
)

type GroupHandler struct {
	groupUseCase *usecase.GroupChatUseCase
}

func NewGroupHandler(groupUseCase *usecase.GroupChatUseCase) *GroupHandler {
	return &GroupHandler{
		groupUseCase: groupUseCase,
	}
}

type createGroupRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Description string   `json:"description" validate:"max=500"`
	Icon        string   `json:"icon" validate:"max=512"`
	MemberIDs   []string `json:"member_ids" validate:"dive,required"`
}

type updateGroupRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Icon        *string `json:"icon" validate:"omitempty,max=512"`
}

type addMembersRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1,dive,required"`
}

type setAdminRequest struct {
	IsAdmin bool `json:"is_admin"`
}

type setPermissionRequest struct {
	Field string `json:"field" validate:"required,oneof=editAccess inviteAccess sendAccess"`
	Level string `json:"level" validate:"required,oneof=admin all"`
}

type sendGroupMessageRequest struct {
	Text      string `json:"text" validate:"required,max=4000"`
	ReplyToID string `json:"reply_to_id"`
}

func (h *GroupHandler) CreateGroup(c echo.Context) error {
	var req createGroupRequest
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

	group, err := h.groupUseCase.CreateGroup(c.Request().Context(), userID, usecase.CreateGroupInput{
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		MemberIDs:   req.MemberIDs,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, group)
}

func (h *GroupHandler) ListGroups(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	groups, err := h.groupUseCase.ListGroups(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	page := utils.GetPaginationParams(c)
	return response.Paginated(c, utils.Paginate(groups, page), len(groups), page.Page, page.PageSize)
}

func (h *GroupHandler) GetGroup(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	detail, err := h.groupUseCase.GetGroup(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, detail)
}

func (h *GroupHandler) UpdateGroup(c echo.Context) error {
	var req updateGroupRequest
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

	group, err := h.groupUseCase.UpdateInfo(c.Request().Context(), c.Param("id"), userID, entity.GroupInfoUpdate{
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, group)
}

// UploadIcon accepts a multipart "icon" file and makes it the group icon.
func (h *GroupHandler) UploadIcon(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	fileHeader, err := c.FormFile("icon")
	if err != nil {
		return response.Error(c, errors.BadRequest("An icon file is required", err))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return response.Error(c, errors.BadRequest("Unable to read icon file", err))
	}
	defer file.Close()

	group, err := h.groupUseCase.UploadIcon(c.Request().Context(), c.Param("id"), userID, file, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, group)
}

func (h *GroupHandler) SetPermission(c echo.Context) error {
	var req setPermissionRequest
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

	err = h.groupUseCase.SetPermission(c.Request().Context(), c.Param("id"), userID,
		entity.PermissionField(req.Field), entity.AccessLevel(req.Level))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{req.Field: req.Level})
}

func (h *GroupHandler) AddMembers(c echo.Context) error {
	var req addMembersRequest
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

	group, err := h.groupUseCase.AddMembers(c.Request().Context(), c.Param("id"), userID, req.UserIDs)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, group)
}

func (h *GroupHandler) RemoveMember(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.groupUseCase.RemoveMember(c.Request().Context(), c.Param("id"), userID, c.Param("userId")); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"removed": c.Param("userId")})
}

func (h *GroupHandler) ExitGroup(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	result, err := h.groupUseCase.ExitGroup(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, result)
}

func (h *GroupHandler) SetAdmin(c echo.Context) error {
	var req setAdminRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	userID, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.groupUseCase.SetAdmin(c.Request().Context(), c.Param("id"), userID, c.Param("userId"), req.IsAdmin); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"user_id":  c.Param("userId"),
		"is_admin": req.IsAdmin,
	})
}

// GetInviteLink returns the shareable link of a group the caller belongs to.
func (h *GroupHandler) GetInviteLink(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	detail, err := h.groupUseCase.GetGroup(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"invite_link": detail.InviteLink})
}

func (h *GroupHandler) JoinViaInvite(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	group, err := h.groupUseCase.JoinViaInvite(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, group)
}

func (h *GroupHandler) SendMessage(c echo.Context) error {
	var req sendGroupMessageRequest
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

	message, err := h.groupUseCase.Send(c.Request().Context(), c.Param("id"), userID, req.Text, req.ReplyToID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

func (h *GroupHandler) GetMessages(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	messages, err := h.groupUseCase.Messages(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.List(c, messages, len(messages))
}

func (h *GroupHandler) EditMessage(c echo.Context) error {
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

	message, err := h.groupUseCase.Edit(c.Request().Context(), c.Param("id"), c.Param("messageId"), userID, req.Text)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, message)
}

func (h *GroupHandler) DeleteMessage(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.groupUseCase.Delete(c.Request().Context(), c.Param("id"), c.Param("messageId"), userID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"deleted": c.Param("messageId")})
}

func (h *GroupHandler) React(c echo.Context) error {
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

	message, err := h.groupUseCase.React(c.Request().Context(), c.Param("id"), c.Param("messageId"), userID, req.Emoji)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, message)
}

func (h *GroupHandler) Unreact(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return response.Error(c, err)
	}

	message, err := h.groupUseCase.Unreact(c.Request().Context(), c.Param("id"), c.Param("messageId"), userID, c.QueryParam("emoji"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, message)
}
