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

// messageLog holds the message operations shared by direct and group
// conversations. Callers check membership before calling in.
type messageLog struct {
	messageRepo repository.MessageRepository
	rateLimiter RateLimiter
}

func requireUser(userID string) error {
	if userID == "" {
		return errors.Unauthorized("Authentication required", nil)
	}
	return nil
}

func cleanText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.Validation("Message text cannot be empty")
	}
	return text, nil
}

func (l *messageLog) throttle(userID, action, what string) error {
	allowed, wait := l.rateLimiter.Allow(userID, action)
	if !allowed {
		logger.Warn("Rate limited: user %s on %s, retry in %v", userID, action, wait)
		return errors.TooManyRequests("You are "+what+" too quickly. Please slow down.", wait)
	}
	return nil
}

// compose builds a user message, freezing a copy of the replied-to message.
func (l *messageLog) compose(ctx context.Context, ref entity.ConversationRef, senderID, text, replyToID string) (*entity.Message, error) {
	message := &entity.Message{
		ConversationID: ref.ID,
		SenderID:       senderID,
		Text:           text,
		IsRead:         false,
		Reactions:      []entity.Reaction{},
	}
	if replyToID != "" {
		original, err := l.messageRepo.GetByID(ctx, ref, replyToID)
		if err != nil {
			return nil, err
		}
		message.ReplyTo = original.Snapshot()
	}
	return message, nil
}

func (l *messageLog) post(ctx context.Context, ref entity.ConversationRef, message *entity.Message) error {
	if err := l.messageRepo.Create(ctx, ref, message); err != nil {
		logger.Error("Failed to create message in %s: %v", ref, err)
		return err
	}
	return nil
}

func (l *messageLog) postSystem(ctx context.Context, ref entity.ConversationRef, actorID, text, kind string) (*entity.Message, error) {
	message := &entity.Message{
		ConversationID:   ref.ID,
		ActorID:          actorID,
		Text:             text,
		System:           true,
		NotificationType: kind,
		Reactions:        []entity.Reaction{},
	}
	if err := l.post(ctx, ref, message); err != nil {
		return nil, err
	}
	return message, nil
}

// ownMessage loads a message and checks that requesterID sent it.
func (l *messageLog) ownMessage(ctx context.Context, ref entity.ConversationRef, messageID, requesterID, action string) (*entity.Message, error) {
	message, err := l.messageRepo.GetByID(ctx, ref, messageID)
	if err != nil {
		return nil, err
	}
	if message.System || message.SenderID != requesterID {
		return nil, errors.Forbidden("You can only "+action+" your own messages", nil)
	}
	return message, nil
}

func (l *messageLog) edit(ctx context.Context, ref entity.ConversationRef, messageID, requesterID, text string) (*entity.Message, error) {
	text, err := cleanText(text)
	if err != nil {
		return nil, err
	}
	if _, err := l.ownMessage(ctx, ref, messageID, requesterID, "edit"); err != nil {
		return nil, err
	}
	if err := l.messageRepo.UpdateText(ctx, ref, messageID, text); err != nil {
		return nil, err
	}
	return l.messageRepo.GetByID(ctx, ref, messageID)
}

func (l *messageLog) delete(ctx context.Context, ref entity.ConversationRef, messageID, requesterID string) error {
	if _, err := l.ownMessage(ctx, ref, messageID, requesterID, "delete"); err != nil {
		return err
	}
	return l.messageRepo.Delete(ctx, ref, messageID)
}

func (l *messageLog) react(ctx context.Context, ref entity.ConversationRef, messageID, userID, emoji string) (*entity.Message, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, errors.Validation("Emoji is required")
	}
	if err := l.throttle(userID, ratelimit.ActionReact, "reacting"); err != nil {
		return nil, err
	}
	if err := l.messageRepo.SetReaction(ctx, ref, messageID, userID, emoji); err != nil {
		return nil, err
	}
	return l.messageRepo.GetByID(ctx, ref, messageID)
}

func (l *messageLog) unreact(ctx context.Context, ref entity.ConversationRef, messageID, userID, emoji string) (*entity.Message, error) {
	message, err := l.messageRepo.GetByID(ctx, ref, messageID)
	if err != nil {
		return nil, err
	}
	for _, r := range message.Reactions {
		if r.UserID == userID && r.Emoji == emoji {
			if err := l.messageRepo.RemoveReaction(ctx, ref, messageID, userID, emoji); err != nil {
				return nil, err
			}
			return l.messageRepo.GetByID(ctx, ref, messageID)
		}
	}
	return message, nil
}
