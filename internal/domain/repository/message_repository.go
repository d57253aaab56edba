package repository

import (
	"context"

	"bunkmate/internal/domain/entity"
)

// MessageStream is a live, restartable sequence of full ordered snapshots of a
// conversation's message log. It ends only when Stop is called or ctx is done.
type MessageStream interface {
	Next(ctx context.Context) ([]*entity.Message, error)
	Stop()
}

type MessageRepository interface {
	// Create assigns the id and leaves CreatedAt to the store.
	Create(ctx context.Context, ref entity.ConversationRef, message *entity.Message) error
	GetByID(ctx context.Context, ref entity.ConversationRef, id string) (*entity.Message, error)
	List(ctx context.Context, ref entity.ConversationRef) ([]*entity.Message, error)

	// UpdateText replaces the text, sets edited and refreshes the timestamp.
	UpdateText(ctx context.Context, ref entity.ConversationRef, id, text string) error
	MarkRead(ctx context.Context, ref entity.ConversationRef, id string) error
	// SetReaction atomically replaces any reaction by userID with (emoji, userID).
	SetReaction(ctx context.Context, ref entity.ConversationRef, id, userID, emoji string) error
	RemoveReaction(ctx context.Context, ref entity.ConversationRef, id, userID, emoji string) error
	Delete(ctx context.Context, ref entity.ConversationRef, id string) error
	DeleteAll(ctx context.Context, ref entity.ConversationRef) error

	Watch(ctx context.Context, ref entity.ConversationRef) (MessageStream, error)
}

type DeliveryTokenRepository interface {
	Get(ctx context.Context, userID string) (*entity.DeliveryToken, error)
	Save(ctx context.Context, token *entity.DeliveryToken) error
	Delete(ctx context.Context, userID string) error
}
