package memory

import (
	"context"

	"bunkmate/internal/domain/entity"
	"bunkmate/internal/domain/repository"
	"bunkmate/pkg/errors"
)

type deliveryTokenRepository struct {
	store *Store
}

func NewDeliveryTokenRepository(store *Store) repository.DeliveryTokenRepository {
	return &deliveryTokenRepository{store: store}
}

func (r *deliveryTokenRepository) Get(ctx context.Context, userID string) (*entity.DeliveryToken, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeliveryToken.Get"); err != nil {
		return nil, err
	}
	token, ok := s.tokens[userID]
	if !ok {
		return nil, errors.NotFound("Delivery token", nil)
	}
	out := *token
	return &out, nil
}

func (r *deliveryTokenRepository) Save(ctx context.Context, token *entity.DeliveryToken) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeliveryToken.Save"); err != nil {
		return err
	}
	token.UpdatedAt = s.stamp()
	stored := *token
	s.tokens[token.UserID] = &stored
	return nil
}

func (r *deliveryTokenRepository) Delete(ctx context.Context, userID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeliveryToken.Delete"); err != nil {
		return err
	}
	delete(s.tokens, userID)
	return nil
}
