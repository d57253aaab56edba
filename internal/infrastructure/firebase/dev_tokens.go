package firebase

import (
	"context"
	"strings"

	"bunkmate/internal/domain/entity"
	"bunkmate/pkg/errors"
)

const devTokenPrefix = "dev:"

// DevIdentityProvider accepts "dev:<uid>" or "dev:<uid>:<display name>" tokens.
// It is only wired when the service runs against the memory store.
type DevIdentityProvider struct{}

func (DevIdentityProvider) Principal(ctx context.Context, idToken string) (*entity.Principal, error) {
	if !strings.HasPrefix(idToken, devTokenPrefix) {
		return nil, errors.Unauthorized("Invalid development token", nil)
	}
	parts := strings.SplitN(strings.TrimPrefix(idToken, devTokenPrefix), ":", 2)
	if parts[0] == "" {
		return nil, errors.Unauthorized("Invalid development token", nil)
	}

	principal := &entity.Principal{ID: parts[0], DisplayName: parts[0]}
	if len(parts) == 2 && parts[1] != "" {
		principal.DisplayName = parts[1]
	}
	return principal, nil
}

// DevToken builds a token DevIdentityProvider accepts.
func DevToken(uid, displayName string) string {
	if displayName == "" {
		return devTokenPrefix + uid
	}
	return devTokenPrefix + uid + ":" + displayName
}
