package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"bunkmate/internal/domain/entity"
	"bunkmate/internal/domain/repository"
	"bunkmate/pkg/errors"
	"bunkmate/pkg/logger"
)

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (r *firestoreUserRepository) Create(ctx context.Context, user *entity.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := r.client.Collection(usersCollection).Doc(user.ID).Set(ctx, user)
	return storeError("User", "create", err)
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	err := withReadRetry(ctx, func() error {
		doc, err := r.client.Collection(usersCollection).Doc(id).Get(ctx)
		if err != nil {
			return storeError("User", "get", err)
		}
		if err := doc.DataTo(&user); err != nil {
			return errors.Internal("Failed to parse user data", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	user.ID = id
	return &user, nil
}

func (r *firestoreUserRepository) GetMany(ctx context.Context, ids []string) (map[string]*entity.User, error) {
	users := make(map[string]*entity.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, r.client.Collection(usersCollection).Doc(id))
	}

	err := withReadRetry(ctx, func() error {
		docs, err := r.client.GetAll(ctx, refs)
		if err != nil {
			return storeError("Users", "get", err)
		}
		for _, doc := range docs {
			if !doc.Exists() {
				continue
			}
			var user entity.User
			if err := doc.DataTo(&user); err != nil {
				logger.Error("Error parsing user %s: %v", doc.Ref.ID, err)
				continue
			}
			user.ID = doc.Ref.ID
			users[user.ID] = &user
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *firestoreUserRepository) SetNickname(ctx context.Context, userID, friendID, nickname string) error {
	var value interface{} = nickname
	if nickname == "" {
		value = firestore.Delete
	}
	_, err := r.client.Collection(usersCollection).Doc(userID).Update(ctx, []firestore.Update{
		{FieldPath: firestore.FieldPath{"nicknames", friendID}, Value: value},
		{Path: "updatedAt", Value: time.Now()},
	})
	return storeError("User", "set nickname for", err)
}

func (r *firestoreUserRepository) RemoveFriend(ctx context.Context, userID, friendID string) error {
	_, err := r.client.Collection(usersCollection).Doc(userID).Update(ctx, []firestore.Update{
		{Path: "friends", Value: firestore.ArrayRemove(friendID)},
		{FieldPath: firestore.FieldPath{"nicknames", friendID}, Value: firestore.Delete},
		{Path: "updatedAt", Value: time.Now()},
	})
	return storeError("User", "remove friend from", err)
}
