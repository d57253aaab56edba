package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"bunkmate/internal/usecase"
	"bunkmate/pkg/errors"
	"bunkmate/pkg/logger"
	"bunkmate/pkg/response"
)

// AuthMiddleware verifies the bearer token and makes sure the caller has a profile.
type AuthMiddleware struct {
	identity    usecase.IdentityProvider
	userUseCase *usecase.UserUseCase
}

func NewAuthMiddleware(identity usecase.IdentityProvider, userUseCase *usecase.UserUseCase) *AuthMiddleware {
	return &AuthMiddleware{
		identity:    identity,
		userUseCase: userUseCase,
	}
}

// BearerToken extracts the ID token from the Authorization header. Browsers
// cannot set headers on a websocket upgrade, so the token query parameter is
// accepted as well.
func BearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.QueryParam("token")
}

func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		idToken := BearerToken(c)
		if idToken == "" {
			return response.Error(c, errors.Unauthorized("Authorization header is required", nil))
		}

		ctx := c.Request().Context()
		principal, err := m.identity.Principal(ctx, idToken)
		if err != nil {
			return response.Error(c, err)
		}

		if _, err := m.userUseCase.EnsureProfile(ctx, principal); err != nil {
			logger.Error("Failed to ensure profile for %s: %v", principal.ID, err)
			return response.Error(c, err)
		}

		c.Set("uid", principal.ID)
		return next(c)
	}
}

// UID returns the authenticated caller set by Authenticate.
func UID(c echo.Context) string {
	uid, _ := c.Get("uid").(string)
	return uid
}
