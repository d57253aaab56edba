package usecase

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"

	"bunkmate/internal/domain/entity"
	"bunkmate/internal/domain/repository"
	"bunkmate/internal/infrastructure/ratelimit"
	"bunkmate/pkg/errors"
	"bunkmate/pkg/logger"
)

// GroupChatUseCase owns group membership, roles, permissions and the group message log.
// Every mutation re-checks the caller's permission; UI gating is not trusted.
type GroupChatUseCase struct {
	groupRepo    repository.GroupRepository
	messageRepo  repository.MessageRepository
	userRepo     repository.UserRepository
	iconStorage  IconStorage
	inviteOrigin string
	systemGroups map[string]bool
	log          *messageLog
}

func NewGroupChatUseCase(
	groupRepo repository.GroupRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	iconStorage IconStorage,
	rateLimiter RateLimiter,
	inviteOrigin string,
) *GroupChatUseCase {
	return &GroupChatUseCase{
		groupRepo:    groupRepo,
		messageRepo:  messageRepo,
		userRepo:     userRepo,
		iconStorage:  iconStorage,
		inviteOrigin: strings.TrimSuffix(inviteOrigin, "/"),
		systemGroups: map[string]bool{},
		log:          &messageLog{messageRepo: messageRepo, rateLimiter: rateLimiter},
	}
}

// WithSystemGroups marks existing groups as protected in addition to those
// stored with isSystem set.
func (uc *GroupChatUseCase) WithSystemGroups(groupIDs ...string) *GroupChatUseCase {
	for _, id := range groupIDs {
		uc.systemGroups[id] = true
	}
	return uc
}

func (uc *GroupChatUseCase) isSystem(group *entity.GroupConversation) bool {
	return group.IsSystem || uc.systemGroups[group.ID]
}

type CreateGroupInput struct {
	Name        string
	Description string
	Icon        string
	MemberIDs   []string
	IsSystem    bool
}

type GroupMember struct {
	ID   string            `json:"id"`
	Name string            `json:"name"`
	Role entity.MemberRole `json:"role"`
}

type GroupDetail struct {
	*entity.GroupConversation
	InviteLink string        `json:"invite_link"`
	MemberList []GroupMember `json:"member_list"`
}

// ExitResult tells the caller whether leaving emptied and destroyed the group.
type ExitResult struct {
	GroupDeleted bool `json:"group_deleted"`
}

func (uc *GroupChatUseCase) memberGroup(ctx context.Context, groupID, userID string) (*entity.GroupConversation, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	group, err := uc.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(userID) {
		return nil, errors.Forbidden("You are not a member of this group", nil)
	}
	return group, nil
}

func (uc *GroupChatUseCase) users(ctx context.Context, ids ...string) map[string]*entity.User {
	users, err := uc.userRepo.GetMany(ctx, ids)
	if err != nil {
		logger.Warn("Failed to load user names %v: %v", ids, err)
		return map[string]*entity.User{}
	}
	return users
}

// existingUsers fails with NotFound when any id does not resolve to a user.
func (uc *GroupChatUseCase) existingUsers(ctx context.Context, ids []string) (map[string]*entity.User, error) {
	users, err := uc.userRepo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := users[id]; !ok {
			return nil, errors.NotFound("User "+id, nil)
		}
	}
	return users, nil
}

func (uc *GroupChatUseCase) announce(ctx context.Context, groupID, actorID, text, kind string) {
	message, err := uc.log.postSystem(ctx, entity.GroupRef(groupID), actorID, text, kind)
	if err != nil {
		logger.LogMembershipError(groupID, "announce", err)
		return
	}
	uc.touch(ctx, groupID, message)
}

func (uc *GroupChatUseCase) touch(ctx context.Context, groupID string, message *entity.Message) {
	if err := uc.groupRepo.TouchLastMessage(ctx, groupID, message); err != nil {
		logger.Warn("Failed to update last message of group %s: %v", groupID, err)
	}
}

// cascade purges the message log of a group whose last member left.
func (uc *GroupChatUseCase) cascade(ctx context.Context, groupID string) {
	logger.Info("Group %s has no members left and was deleted", groupID)
	if err := uc.groupRepo.Delete(ctx, groupID); err != nil {
		logger.LogMembershipError(groupID, "cascade delete group", err)
	}
	if err := uc.messageRepo.DeleteAll(ctx, entity.GroupRef(groupID)); err != nil {
		logger.LogMembershipError(groupID, "cascade delete messages", err)
	}
}

func (uc *GroupChatUseCase) CreateGroup(ctx context.Context, requesterID string, input CreateGroupInput) (*entity.GroupConversation, error) {
	if err := requireUser(requesterID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.Validation("Group name is required")
	}
	if err := uc.log.throttle(requesterID, ratelimit.ActionCreateGroup, "creating groups"); err != nil {
		return nil, err
	}

	members, others := entity.UnionIDs([]string{requesterID}, input.MemberIDs)
	users, err := uc.existingUsers(ctx, others)
	if err != nil {
		return nil, err
	}
	if creator, err := uc.userRepo.GetByID(ctx, requesterID); err == nil {
		users[requesterID] = creator
	}

	id := uuid.New().String()
	group := &entity.GroupConversation{
		ID:           id,
		Name:         name,
		Description:  strings.TrimSpace(input.Description),
		Icon:         input.Icon,
		Members:      members,
		CreatedBy:    requesterID,
		Admins:       []string{},
		EditAccess:   entity.AccessAll,
		InviteAccess: entity.AccessAdmin,
		SendAccess:   entity.AccessAll,
		InviteToken:  id,
		IsSystem:     input.IsSystem,
	}
	if err := uc.groupRepo.Create(ctx, group); err != nil {
		return nil, err
	}
	logger.Info("Group %s created by %s with %d members", id, requesterID, len(members))

	uc.announce(ctx, id, requesterID, createdGroupText(nameOf(users, requesterID)), entity.NotificationMembership)
	return group, nil
}

// AddMembers unions userIDs into the group and announces the whole batch in one message.
func (uc *GroupChatUseCase) AddMembers(ctx context.Context, groupID, requesterID string, userIDs []string) (*entity.GroupConversation, error) {
	if err := requireUser(requesterID); err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return nil, errors.Validation("At least one member is required")
	}
	group, err := uc.memberGroup(ctx, groupID, requesterID)
	if err != nil {
		return nil, err
	}
	if !group.CanAddMembers(requesterID) {
		return nil, errors.Forbidden("Only admins can add members to this group", nil)
	}

	_, added := entity.UnionIDs(group.Members, userIDs)
	if len(added) == 0 {
		return group, nil
	}
	users, err := uc.existingUsers(ctx, added)
	if err != nil {
		return nil, err
	}
	if err := uc.groupRepo.AddMembers(ctx, groupID, added); err != nil {
		logger.LogMembershipError(groupID, "add members", err)
		return nil, err
	}
	for id, u := range uc.users(ctx, requesterID) {
		users[id] = u
	}

	uc.announce(ctx, groupID, requesterID, addedMembersText(nameOf(users, requesterID), namesOf(users, added)), entity.NotificationMembership)
	return uc.groupRepo.GetByID(ctx, groupID)
}

func (uc *GroupChatUseCase) RemoveMember(ctx context.Context, groupID, requesterID, targetID string) error {
	group, err := uc.memberGroup(ctx, groupID, requesterID)
	if err != nil {
		return err
	}
	if !group.HasMember(targetID) {
		return errors.NotFound("Member", nil)
	}
	if !group.CanRemove(requesterID, targetID) {
		switch {
		case group.IsCreator(targetID):
			return errors.Forbidden("The group creator cannot be removed", nil)
		case requesterID == targetID:
			return errors.Forbidden("Use exit to leave the group", nil)
		default:
			return errors.Forbidden("You do not have permission to remove this member", nil)
		}
	}

	deleted, err := uc.groupRepo.RemoveMember(ctx, groupID, targetID)
	if err != nil {
		logger.LogMembershipError(groupID, "remove member", err)
		return err
	}
	if deleted {
		uc.cascade(ctx, groupID)
		return nil
	}

	users := uc.users(ctx, requesterID, targetID)
	uc.announce(ctx, groupID, requesterID, removedMemberText(nameOf(users, requesterID), nameOf(users, targetID)), entity.NotificationMembership)
	return nil
}

// ExitGroup removes the caller. The creator may only leave as the last member,
// which destroys the group.
func (uc *GroupChatUseCase) ExitGroup(ctx context.Context, groupID, userID string) (*ExitResult, error) {
	group, err := uc.memberGroup(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if uc.isSystem(group) {
		return nil, errors.Forbidden("This group cannot be left", nil)
	}
	if group.IsCreator(userID) && len(group.Members) > 1 {
		return nil, errors.BadRequest("The group creator can only leave once every other member is gone", nil)
	}

	deleted, err := uc.groupRepo.RemoveMember(ctx, groupID, userID)
	if err != nil {
		logger.LogMembershipError(groupID, "exit", err)
		return nil, err
	}
	if deleted {
		uc.cascade(ctx, groupID)
		return &ExitResult{GroupDeleted: true}, nil
	}

	users := uc.users(ctx, userID)
	uc.announce(ctx, groupID, userID, leftGroupText(nameOf(users, userID)), entity.NotificationMembership)
	return &ExitResult{}, nil
}

func (uc *GroupChatUseCase) SetAdmin(ctx context.Context, groupID, requesterID, targetID string, isAdmin bool) error {
	group, err := uc.memberGroup(ctx, groupID, requesterID)
	if err != nil {
		return err
	}
	if !group.CanManageMembers(requesterID) {
		return errors.Forbidden("Only admins can change admin rights", nil)
	}
	if !group.HasMember(targetID) {
		return errors.NotFound("Member", nil)
	}
	if group.IsCreator(targetID) {
		return errors.BadRequest("The group creator is always an admin", nil)
	}
	wasAdmin := group.IsAdmin(targetID)
	if wasAdmin && !isAdmin && targetID != requesterID && !group.IsCreator(requesterID) {
		return errors.Forbidden("Only the group creator can revoke another admin", nil)
	}
	if wasAdmin == isAdmin {
		return nil
	}

	if err := uc.groupRepo.SetAdmin(ctx, groupID, targetID, isAdmin); err != nil {
		logger.LogMembershipError(groupID, "set admin", err)
		return err
	}
	users := uc.users(ctx, requesterID, targetID)
	uc.announce(ctx, groupID, requesterID, adminChangedText(nameOf(users, requesterID), nameOf(users, targetID), isAdmin), entity.NotificationMembership)
	return nil
}

// UpdateInfo applies the changed fields and announces them in a single message.
// When nothing differs from the stored group no message is written.
func (uc *GroupChatUseCase) UpdateInfo(ctx context.Context, groupID, requesterID string, update entity.GroupInfoUpdate) (*entity.GroupConversation, error) {
	if err := requireUser(requesterID); err != nil {
		return nil, err
	}
	if update.Empty() {
		return nil, errors.Validation("Nothing to update")
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, errors.Validation("Group name cannot be empty")
		}
		update.Name = &name
	}

	group, err := uc.memberGroup(ctx, groupID, requesterID)
	if err != nil {
		return nil, err
	}
	if !group.CanEditGroupInfo(requesterID) {
		return nil, errors.Forbidden("Only admins can edit this group's info", nil)
	}

	changes := group.Diff(update)
	if changes.Empty() {
		return group, nil
	}
	if err := uc.groupRepo.UpdateInfo(ctx, groupID, changes); err != nil {
		return nil, err
	}

	users := uc.users(ctx, requesterID)
	uc.announce(ctx, groupID, requesterID, groupInfoText(nameOf(users, requesterID), changes), entity.NotificationSettings)
	return uc.groupRepo.GetByID(ctx, groupID)
}

// UploadIcon stores an image and makes it the group icon.
func (uc *GroupChatUseCase) UploadIcon(ctx context.Context, groupID, requesterID string, file io.Reader, contentType string) (*entity.GroupConversation, error) {
	if uc.iconStorage == nil {
		return nil, errors.BadRequest("Icon uploads are not configured", nil)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, errors.Validation("Group icon must be an image")
	}
	group, err := uc.memberGroup(ctx, groupID, requesterID)
	if err != nil {
		return nil, err
	}
	if !group.CanEditGroupInfo(requesterID) {
		return nil, errors.Forbidden("Only admins can edit this group's info", nil)
	}

	url, err := uc.iconStorage.UploadGroupIcon(ctx, groupID, file, contentType)
	if err != nil {
		return nil, errors.Internal("Failed to upload group icon", err)
	}
	return uc.UpdateInfo(ctx, groupID, requesterID, entity.GroupInfoUpdate{Icon: &url})
}

// SetPermission changes one access flag. Permission changes are not announced.
func (uc *GroupChatUseCase) SetPermission(ctx context.Context, groupID, requesterID string, field entity.PermissionField, level entity.AccessLevel) error {
	if err := requireUser(requesterID); err != nil {
		return err
	}
	if !field.Valid() {
		return errors.Validation("Unknown permission " + string(field))
	}
	if !level.Valid() {
		return errors.Validation("Access must be admin or all")
	}
	group, err := uc.memberGroup(ctx, groupID, requesterID)
	if err != nil {
		return err
	}
	if !group.CanManageMembers(requesterID) {
		return errors.Forbidden("Only admins can change group permissions", nil)
	}
	if group.Access(field) == level {
		return nil
	}
	return uc.groupRepo.SetPermission(ctx, groupID, field, level)
}

func (uc *GroupChatUseCase) InviteLink(groupID string) string {
	return entity.InviteLink(uc.inviteOrigin, groupID)
}

// JoinViaInvite adds the caller to the group the token points at. Holding the
// link is enough; inviteAccess is not consulted.
func (uc *GroupChatUseCase) JoinViaInvite(ctx context.Context, token, userID string) (*entity.GroupConversation, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	group, err := uc.groupRepo.GetByID(ctx, token)
	if err != nil {
		return nil, err
	}
	if group.HasMember(userID) {
		return group, nil
	}

	if err := uc.groupRepo.AddMembers(ctx, group.ID, []string{userID}); err != nil {
		logger.LogMembershipError(group.ID, "join via invite", err)
		return nil, err
	}
	users := uc.users(ctx, userID)
	uc.announce(ctx, group.ID, userID, joinedViaInviteText(nameOf(users, userID)), entity.NotificationMembership)
	return uc.groupRepo.GetByID(ctx, group.ID)
}

// GetGroup returns the group with resolved member names and roles.
func (uc *GroupChatUseCase) GetGroup(ctx context.Context, groupID, viewerID string) (*GroupDetail, error) {
	group, err := uc.memberGroup(ctx, groupID, viewerID)
	if err != nil {
		return nil, err
	}
	users := uc.users(ctx, group.Members...)
	members := make([]GroupMember, 0, len(group.Members))
	for _, id := range group.Members {
		members = append(members, GroupMember{ID: id, Name: nameOf(users, id), Role: group.Role(id)})
	}
	return &GroupDetail{
		GroupConversation: group,
		InviteLink:        uc.InviteLink(group.ID),
		MemberList:        members,
	}, nil
}

func (uc *GroupChatUseCase) ListGroups(ctx context.Context, userID string) ([]*entity.GroupConversation, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return uc.groupRepo.ListByMember(ctx, userID)
}

func (uc *GroupChatUseCase) Send(ctx context.Context, groupID, senderID, text, replyToID string) (*entity.Message, error) {
	if err := requireUser(senderID); err != nil {
		return nil, err
	}
	text, err := cleanText(text)
	if err != nil {
		return nil, err
	}
	group, err := uc.memberGroup(ctx, groupID, senderID)
	if err != nil {
		return nil, err
	}
	if !group.CanSend(senderID) {
		return nil, errors.Forbidden("Only admins can send messages in this group", nil)
	}
	if err := uc.log.throttle(senderID, ratelimit.ActionSendMessage, "sending messages"); err != nil {
		return nil, err
	}

	ref := group.Ref()
	message, err := uc.log.compose(ctx, ref, senderID, text, replyToID)
	if err != nil {
		return nil, err
	}
	if err := uc.log.post(ctx, ref, message); err != nil {
		return nil, err
	}
	uc.touch(ctx, groupID, message)
	return message, nil
}

func (uc *GroupChatUseCase) Edit(ctx context.Context, groupID, messageID, requesterID, text string) (*entity.Message, error) {
	group, err := uc.memberGroup(ctx, groupID, requesterID)
	if err != nil {
		return nil, err
	}
	return uc.log.edit(ctx, group.Ref(), messageID, requesterID, text)
}

func (uc *GroupChatUseCase) Delete(ctx context.Context, groupID, messageID, requesterID string) error {
	group, err := uc.memberGroup(ctx, groupID, requesterID)
	if err != nil {
		return err
	}
	return uc.log.delete(ctx, group.Ref(), messageID, requesterID)
}

func (uc *GroupChatUseCase) React(ctx context.Context, groupID, messageID, userID, emoji string) (*entity.Message, error) {
	group, err := uc.memberGroup(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	return uc.log.react(ctx, group.Ref(), messageID, userID, emoji)
}

func (uc *GroupChatUseCase) Unreact(ctx context.Context, groupID, messageID, userID, emoji string) (*entity.Message, error) {
	group, err := uc.memberGroup(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	return uc.log.unreact(ctx, group.Ref(), messageID, userID, emoji)
}

func (uc *GroupChatUseCase) Messages(ctx context.Context, groupID, viewerID string) ([]*entity.Message, error) {
	group, err := uc.memberGroup(ctx, groupID, viewerID)
	if err != nil {
		return nil, err
	}
	return uc.messageRepo.List(ctx, group.Ref())
}
