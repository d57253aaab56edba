package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"bunkmate/internal/domain/entity"
	"bunkmate/internal/domain/repository"
	"bunkmate/pkg/errors"
	"bunkmate/pkg/logger"
)

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func (r *firestoreMessageRepository) Create(ctx context.Context, ref entity.ConversationRef, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	message.ConversationID = ref.ID
	if message.Reactions == nil {
		message.Reactions = []entity.Reaction{}
	}

	// createdAt is tagged serverTimestamp, so the zero value is replaced on commit.
	result, err := messagesOf(r.client, ref).Doc(message.ID).Set(ctx, message)
	if err != nil {
		return storeError("Message", "create", err)
	}
	message.CreatedAt = result.UpdateTime
	return nil
}

func (r *firestoreMessageRepository) GetByID(ctx context.Context, ref entity.ConversationRef, id string) (*entity.Message, error) {
	var message entity.Message
	err := withReadRetry(ctx, func() error {
		doc, err := messagesOf(r.client, ref).Doc(id).Get(ctx)
		if err != nil {
			return storeError("Message", "get", err)
		}
		if err := doc.DataTo(&message); err != nil {
			return errors.Internal("Failed to parse message data", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	message.ID = id
	return &message, nil
}

func (r *firestoreMessageRepository) List(ctx context.Context, ref entity.ConversationRef) ([]*entity.Message, error) {
	var messages []*entity.Message
	err := withReadRetry(ctx, func() error {
		docs, err := messagesOf(r.client, ref).OrderBy("createdAt", firestore.Asc).Documents(ctx).GetAll()
		if err != nil {
			return storeError("Messages", "list", err)
		}
		messages = decodeMessages(ref, docs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *firestoreMessageRepository) UpdateText(ctx context.Context, ref entity.ConversationRef, id, text string) error {
	_, err := messagesOf(r.client, ref).Doc(id).Update(ctx, []firestore.Update{
		{Path: "text", Value: text},
		{Path: "edited", Value: true},
		{Path: "createdAt", Value: firestore.ServerTimestamp},
	})
	return storeError("Message", "edit", err)
}

func (r *firestoreMessageRepository) MarkRead(ctx context.Context, ref entity.ConversationRef, id string) error {
	_, err := messagesOf(r.client, ref).Doc(id).Update(ctx, []firestore.Update{
		{Path: "isRead", Value: true},
	})
	return storeError("Message", "mark read", err)
}

func (r *firestoreMessageRepository) SetReaction(ctx context.Context, ref entity.ConversationRef, id, userID, emoji string) error {
	doc := messagesOf(r.client, ref).Doc(id)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(doc)
		if err != nil {
			return err
		}
		var message entity.Message
		if err := snap.DataTo(&message); err != nil {
			return errors.Internal("Failed to parse message data", err)
		}
		return tx.Update(doc, []firestore.Update{
			{Path: "reactions", Value: entity.WithReaction(message.Reactions, userID, emoji)},
		})
	})
	return storeError("Message", "react to", err)
}

func (r *firestoreMessageRepository) RemoveReaction(ctx context.Context, ref entity.ConversationRef, id, userID, emoji string) error {
	_, err := messagesOf(r.client, ref).Doc(id).Update(ctx, []firestore.Update{
		{Path: "reactions", Value: firestore.ArrayRemove(entity.Reaction{Emoji: emoji, UserID: userID})},
	})
	return storeError("Message", "remove reaction from", err)
}

func (r *firestoreMessageRepository) Delete(ctx context.Context, ref entity.ConversationRef, id string) error {
	_, err := messagesOf(r.client, ref).Doc(id).Delete(ctx)
	return storeError("Message", "delete", err)
}

func (r *firestoreMessageRepository) DeleteAll(ctx context.Context, ref entity.ConversationRef) error {
	refs, err := messagesOf(r.client, ref).DocumentRefs(ctx).GetAll()
	if err != nil {
		return storeError("Messages", "list", err)
	}
	if len(refs) == 0 {
		return nil
	}

	writer := r.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(refs))
	for _, doc := range refs {
		job, err := writer.Delete(doc)
		if err != nil {
			writer.End()
			return storeError("Messages", "delete", err)
		}
		jobs = append(jobs, job)
	}
	writer.End()

	failed := 0
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			failed++
		}
	}
	if failed > 0 {
		logger.Warn("DeleteAll %s: %d of %d message deletes failed", ref, failed, len(jobs))
		return errors.StoreUnavailable("Failed to delete every message", nil)
	}
	return nil
}

func (r *firestoreMessageRepository) Watch(ctx context.Context, ref entity.ConversationRef) (repository.MessageStream, error) {
	iter := messagesOf(r.client, ref).OrderBy("createdAt", firestore.Asc).Snapshots(ctx)
	return &firestoreMessageStream{ref: ref, iter: iter}, nil
}

// firestoreMessageStream adapts a query snapshot listener. The listener is bound
// to the context given to Watch; the per-call context is only checked up front.
type firestoreMessageStream struct {
	ref  entity.ConversationRef
	iter *firestore.QuerySnapshotIterator
}

func (s *firestoreMessageStream) Next(ctx context.Context) ([]*entity.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := s.iter.Next()
	if err != nil {
		if err == iterator.Done {
			return nil, err
		}
		return nil, storeError("Messages", "watch", err)
	}
	docs, err := snap.Documents.GetAll()
	if err != nil {
		return nil, storeError("Messages", "read snapshot of", err)
	}
	return decodeMessages(s.ref, docs), nil
}

func (s *firestoreMessageStream) Stop() {
	s.iter.Stop()
}

func decodeMessages(ref entity.ConversationRef, docs []*firestore.DocumentSnapshot) []*entity.Message {
	messages := make([]*entity.Message, 0, len(docs))
	for _, doc := range docs {
		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			logger.Error("Error parsing message %s in %s: %v", doc.Ref.ID, ref, err)
			continue
		}
		message.ID = doc.Ref.ID
		messages = append(messages, &message)
	}
	entity.SortMessages(messages)
	return messages
}
