package memory

import (
	"context"

	"bunkmate/internal/domain/entity"
	"bunkmate/internal/domain/repository"
	"bunkmate/pkg/errors"
)

type userRepository struct {
	store *Store
}

func NewUserRepository(store *Store) repository.UserRepository {
	return &userRepository{store: store}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("User.Create"); err != nil {
		return err
	}
	now := s.stamp()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	s.users[user.ID] = copyUser(user)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("User.GetByID"); err != nil {
		return nil, err
	}
	user, ok := s.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return copyUser(user), nil
}

func (r *userRepository) GetMany(ctx context.Context, ids []string) (map[string]*entity.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("User.GetMany"); err != nil {
		return nil, err
	}
	users := make(map[string]*entity.User, len(ids))
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			users[id] = copyUser(user)
		}
	}
	return users, nil
}

func (r *userRepository) SetNickname(ctx context.Context, userID, friendID, nickname string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("User.SetNickname"); err != nil {
		return err
	}
	user, ok := s.users[userID]
	if !ok {
		return errors.NotFound("User", nil)
	}
	if user.Nicknames == nil {
		user.Nicknames = make(map[string]string)
	}
	if nickname == "" {
		delete(user.Nicknames, friendID)
	} else {
		user.Nicknames[friendID] = nickname
	}
	user.UpdatedAt = s.stamp()
	return nil
}

func (r *userRepository) RemoveFriend(ctx context.Context, userID, friendID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("User.RemoveFriend"); err != nil {
		return err
	}
	user, ok := s.users[userID]
	if !ok {
		return errors.NotFound("User", nil)
	}
	friends := make([]string, 0, len(user.Friends))
	for _, f := range user.Friends {
		if f != friendID {
			friends = append(friends, f)
		}
	}
	user.Friends = friends
	delete(user.Nicknames, friendID)
	user.UpdatedAt = s.stamp()
	return nil
}
