package usecase

import (
	"context"
	"strings"

	"bunkmate/internal/domain/entity"
	"bunkmate/internal/domain/repository"
	"bunkmate/pkg/errors"
	"bunkmate/pkg/logger"
)

type UserUseCase struct {
	userRepo repository.UserRepository
}

func NewUserUseCase(userRepo repository.UserRepository) *UserUseCase {
	return &UserUseCase{
		userRepo: userRepo,
	}
}

// EnsureProfile returns the caller's profile, creating it from the principal on first sight.
func (uc *UserUseCase) EnsureProfile(ctx context.Context, principal *entity.Principal) (*entity.User, error) {
	if principal == nil || principal.ID == "" {
		return nil, errors.Unauthorized("Authentication required", nil)
	}

	user, err := uc.userRepo.GetByID(ctx, principal.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, errors.CodeNotFound) {
		return nil, err
	}

	user = &entity.User{
		ID:          principal.ID,
		DisplayName: principal.DisplayName,
		Username:    usernameFromEmail(principal.Email),
		Email:       principal.Email,
		Friends:     []string{},
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	logger.Info("Created profile for user %s", user.ID)
	return user, nil
}

func (uc *UserUseCase) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	if userID == "" {
		return nil, errors.Unauthorized("Authentication required", nil)
	}
	return uc.userRepo.GetByID(ctx, userID)
}

// RemoveFriend drops the friendship on both sides along with any nicknames.
func (uc *UserUseCase) RemoveFriend(ctx context.Context, userID, friendID string) error {
	if userID == "" {
		return errors.Unauthorized("Authentication required", nil)
	}
	if friendID == "" || friendID == userID {
		return errors.Validation("A different friend id is required")
	}

	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.IsFriend(friendID) {
		return errors.NotFound("Friend", nil)
	}

	if err := uc.userRepo.RemoveFriend(ctx, userID, friendID); err != nil {
		return err
	}
	if err := uc.userRepo.RemoveFriend(ctx, friendID, userID); err != nil && !errors.Is(err, errors.CodeNotFound) {
		logger.Warn("RemoveFriend: failed to update %s after %s removed them: %v", friendID, userID, err)
	}
	return nil
}

func usernameFromEmail(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
