package usecase

import (
	"context"
	"io"
	"time"

	"bunkmate/internal/domain/entity"
)

// IdentityProvider verifies an ID token and returns the principal it was issued to.
type IdentityProvider interface {
	Principal(ctx context.Context, idToken string) (*entity.Principal, error)
}

// RateLimiter is satisfied by ratelimit.RateLimiter.
type RateLimiter interface {
	Allow(userID, action string) (bool, time.Duration)
}

// Notifier hands a derived notification event to the delivery layer.
type Notifier interface {
	Dispatch(ctx context.Context, event entity.NotificationEvent) error
}

// IconStorage stores an uploaded group icon and returns its public URL.
type IconStorage interface {
	UploadGroupIcon(ctx context.Context, groupID string, file io.Reader, contentType string) (string, error)
}

type allowAll struct{}

func (allowAll) Allow(string, string) (bool, time.Duration) { return true, 0 }

// AllowAll is a RateLimiter that never throttles.
var AllowAll RateLimiter = allowAll{}
