package repository

import (
	"context"

	"bunkmate/internal/domain/entity"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	// GetMany returns the users that exist, keyed by id. Missing ids are skipped.
	GetMany(ctx context.Context, ids []string) (map[string]*entity.User, error)
	SetNickname(ctx context.Context, userID, friendID, nickname string) error
	RemoveFriend(ctx context.Context, userID, friendID string) error
}
