package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"bunkmate/internal/domain/entity"
	"bunkmate/internal/domain/repository"
	"bunkmate/pkg/errors"
)

type firestoreDeliveryTokenRepository struct {
	client *firestore.Client
}

func NewFirestoreDeliveryTokenRepository(client *firestore.Client) repository.DeliveryTokenRepository {
	return &firestoreDeliveryTokenRepository{
		client: client,
	}
}

func (r *firestoreDeliveryTokenRepository) Get(ctx context.Context, userID string) (*entity.DeliveryToken, error) {
	var token entity.DeliveryToken
	err := withReadRetry(ctx, func() error {
		doc, err := r.client.Collection(deliveryTokensCollection).Doc(userID).Get(ctx)
		if err != nil {
			return storeError("Delivery token", "get", err)
		}
		if err := doc.DataTo(&token); err != nil {
			return errors.Internal("Failed to parse delivery token", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *firestoreDeliveryTokenRepository) Save(ctx context.Context, token *entity.DeliveryToken) error {
	token.UpdatedAt = time.Now()
	_, err := r.client.Collection(deliveryTokensCollection).Doc(token.UserID).Set(ctx, token)
	return storeError("Delivery token", "save", err)
}

func (r *firestoreDeliveryTokenRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.client.Collection(deliveryTokensCollection).Doc(userID).Delete(ctx)
	return storeError("Delivery token", "delete", err)
}
