package usecase

import (
	"context"
	"strings"

	"bunkmate/internal/domain/entity"
	"bunkmate/internal/domain/repository"
	"bunkmate/internal/infrastructure/ratelimit"
	"bunkmate/pkg/errors"
	"bunkmate/pkg/logger"
)

// DirectChatUseCase owns two-party conversations.
type DirectChatUseCase struct {
	chatRepo    repository.DirectChatRepository
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	log         *messageLog
}

func NewDirectChatUseCase(
	chatRepo repository.DirectChatRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	rateLimiter RateLimiter,
) *DirectChatUseCase {
	return &DirectChatUseCase{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		log:         &messageLog{messageRepo: messageRepo, rateLimiter: rateLimiter},
	}
}

type SendDirectMessageInput struct {
	RecipientID string
	Text        string
	ReplyToID   string
}

// ChatSummary is a row of the viewer's chat list.
type ChatSummary struct {
	*entity.DirectConversation
	OtherUser *entity.User `json:"other_user,omitempty"`
}

func (uc *DirectChatUseCase) ConversationID(a, b string) string {
	return entity.ConversationID(a, b)
}

// participantChat loads the conversation and checks userID takes part in it.
func (uc *DirectChatUseCase) participantChat(ctx context.Context, conversationID, userID string) (*entity.DirectConversation, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	chat, err := uc.chatRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !chat.HasMember(userID) {
		logger.Warn("User %s is not a participant in chat %s", userID, conversationID)
		return nil, errors.Forbidden("User is not a participant in this chat", nil)
	}
	return chat, nil
}

// Send appends a message, creating the conversation on first contact.
func (uc *DirectChatUseCase) Send(ctx context.Context, senderID string, input SendDirectMessageInput) (*entity.Message, error) {
	if err := requireUser(senderID); err != nil {
		return nil, err
	}
	text, err := cleanText(input.Text)
	if err != nil {
		return nil, err
	}
	if input.RecipientID == "" {
		return nil, errors.Validation("Recipient is required")
	}
	if input.RecipientID == senderID {
		return nil, errors.Validation("You cannot send a message to yourself")
	}
	if err := uc.log.throttle(senderID, ratelimit.ActionSendMessage, "sending messages"); err != nil {
		return nil, err
	}

	if _, err := uc.userRepo.GetByID(ctx, input.RecipientID); err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil, errors.NotFound("Recipient", err)
		}
		return nil, err
	}

	chat := entity.NewDirectConversation(senderID, input.RecipientID)
	created, err := uc.chatRepo.Ensure(ctx, chat)
	if err != nil {
		return nil, err
	}
	if created {
		logger.Info("Created direct chat %s", chat.ID)
	}

	ref := chat.Ref()
	message, err := uc.log.compose(ctx, ref, senderID, text, input.ReplyToID)
	if err != nil {
		return nil, err
	}
	if err := uc.log.post(ctx, ref, message); err != nil {
		return nil, err
	}
	uc.touch(ctx, chat.ID, message)
	return message, nil
}

func (uc *DirectChatUseCase) touch(ctx context.Context, chatID string, message *entity.Message) {
	if err := uc.chatRepo.TouchLastMessage(ctx, chatID, message); err != nil {
		logger.Warn("Failed to update last message of chat %s: %v", chatID, err)
	}
}

func (uc *DirectChatUseCase) Edit(ctx context.Context, conversationID, messageID, requesterID, text string) (*entity.Message, error) {
	chat, err := uc.participantChat(ctx, conversationID, requesterID)
	if err != nil {
		return nil, err
	}
	return uc.log.edit(ctx, chat.Ref(), messageID, requesterID, text)
}

func (uc *DirectChatUseCase) Delete(ctx context.Context, conversationID, messageID, requesterID string) error {
	chat, err := uc.participantChat(ctx, conversationID, requesterID)
	if err != nil {
		return err
	}
	return uc.log.delete(ctx, chat.Ref(), messageID, requesterID)
}

func (uc *DirectChatUseCase) React(ctx context.Context, conversationID, messageID, userID, emoji string) (*entity.Message, error) {
	chat, err := uc.participantChat(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	return uc.log.react(ctx, chat.Ref(), messageID, userID, emoji)
}

func (uc *DirectChatUseCase) Unreact(ctx context.Context, conversationID, messageID, userID, emoji string) (*entity.Message, error) {
	chat, err := uc.participantChat(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	return uc.log.unreact(ctx, chat.Ref(), messageID, userID, emoji)
}

// MarkRead flips the newest message to read when viewerID is its recipient.
// It reports whether a write happened; calling it again is a no-op.
func (uc *DirectChatUseCase) MarkRead(ctx context.Context, conversationID, viewerID string) (bool, error) {
	chat, err := uc.participantChat(ctx, conversationID, viewerID)
	if err != nil {
		return false, err
	}
	messages, err := uc.messageRepo.List(ctx, chat.Ref())
	if err != nil {
		return false, err
	}
	newest := entity.Newest(messages)
	if !needsReadReceipt(newest, viewerID) {
		return false, nil
	}
	if err := uc.messageRepo.MarkRead(ctx, chat.Ref(), newest.ID); err != nil {
		return false, err
	}
	return true, nil
}

// SetNickname stores how requesterID calls friendID and announces it in their chat.
func (uc *DirectChatUseCase) SetNickname(ctx context.Context, requesterID, friendID, nickname string) (*entity.Message, error) {
	if err := requireUser(requesterID); err != nil {
		return nil, err
	}
	if friendID == "" || friendID == requesterID {
		return nil, errors.Validation("A different user is required")
	}
	nickname = strings.TrimSpace(nickname)

	users, err := uc.userRepo.GetMany(ctx, []string{requesterID, friendID})
	if err != nil {
		return nil, err
	}
	friend, ok := users[friendID]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}

	if err := uc.userRepo.SetNickname(ctx, requesterID, friendID, nickname); err != nil {
		return nil, err
	}

	chat := entity.NewDirectConversation(requesterID, friendID)
	if _, err := uc.chatRepo.Ensure(ctx, chat); err != nil {
		return nil, err
	}
	text := nicknameText(nameOf(users, requesterID), friend.Name(), nickname)
	message, err := uc.log.postSystem(ctx, chat.Ref(), requesterID, text, entity.NotificationNickname)
	if err != nil {
		return nil, err
	}
	uc.touch(ctx, chat.ID, message)
	return message, nil
}

// Messages returns the ordered log of a conversation the viewer takes part in.
func (uc *DirectChatUseCase) Messages(ctx context.Context, conversationID, viewerID string) ([]*entity.Message, error) {
	chat, err := uc.participantChat(ctx, conversationID, viewerID)
	if err != nil {
		return nil, err
	}
	return uc.messageRepo.List(ctx, chat.Ref())
}

func (uc *DirectChatUseCase) GetChat(ctx context.Context, conversationID, viewerID string) (*entity.DirectConversation, error) {
	return uc.participantChat(ctx, conversationID, viewerID)
}

// ListChats returns the viewer's conversations, most recent first.
func (uc *DirectChatUseCase) ListChats(ctx context.Context, userID string) ([]*ChatSummary, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	chats, err := uc.chatRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	others := make([]string, 0, len(chats))
	for _, chat := range chats {
		others = append(others, chat.Other(userID))
	}
	users, err := uc.userRepo.GetMany(ctx, others)
	if err != nil {
		logger.Warn("ListChats: failed to load participants for %s: %v", userID, err)
		users = map[string]*entity.User{}
	}

	summaries := make([]*ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summaries = append(summaries, &ChatSummary{
			DirectConversation: chat,
			OtherUser:          users[chat.Other(userID)],
		})
	}
	return summaries, nil
}
