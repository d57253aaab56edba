package repository

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"bunkmate/internal/domain/entity"
	"bunkmate/internal/domain/repository"
	"bunkmate/pkg/errors"
)

type firestoreDirectChatRepository struct {
	client *firestore.Client
}

func NewFirestoreDirectChatRepository(client *firestore.Client) repository.DirectChatRepository {
	return &firestoreDirectChatRepository{
		client: client,
	}
}

func (r *firestoreDirectChatRepository) Ensure(ctx context.Context, chat *entity.DirectConversation) (bool, error) {
	now := time.Now()
	chat.CreatedAt = now
	chat.UpdatedAt = now

	_, err := r.client.Collection(chatsCollection).Doc(chat.ID).Create(ctx, chat)
	if status.Code(err) == codes.AlreadyExists {
		return false, nil
	}
	if err != nil {
		return false, storeError("Chat", "create", err)
	}
	return true, nil
}

func (r *firestoreDirectChatRepository) GetByID(ctx context.Context, id string) (*entity.DirectConversation, error) {
	var chat entity.DirectConversation
	err := withReadRetry(ctx, func() error {
		doc, err := r.client.Collection(chatsCollection).Doc(id).Get(ctx)
		if err != nil {
			return storeError("Chat", "get", err)
		}
		if err := doc.DataTo(&chat); err != nil {
			return errors.Internal("Failed to parse chat data", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *firestoreDirectChatRepository) ListByUserID(ctx context.Context, userID string) ([]*entity.DirectConversation, error) {
	var chats []*entity.DirectConversation
	err := withReadRetry(ctx, func() error {
		docs, err := r.client.Collection(chatsCollection).
			Where("participants", "array-contains", userID).
			Documents(ctx).GetAll()
		if err != nil {
			return storeError("Chats", "list", err)
		}
		chats = make([]*entity.DirectConversation, 0, len(docs))
		for _, doc := range docs {
			var chat entity.DirectConversation
			if err := doc.DataTo(&chat); err != nil {
				return errors.Internal("Failed to parse chat data", err)
			}
			chats = append(chats, &chat)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].LastMessageAt.After(chats[j].LastMessageAt)
	})
	return chats, nil
}

func (r *firestoreDirectChatRepository) TouchLastMessage(ctx context.Context, id string, message *entity.Message) error {
	_, err := r.client.Collection(chatsCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "lastMessage", Value: message.Text},
		{Path: "lastSenderId", Value: message.SenderID},
		{Path: "lastMessageAt", Value: firestore.ServerTimestamp},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	return storeError("Chat", "update", err)
}
