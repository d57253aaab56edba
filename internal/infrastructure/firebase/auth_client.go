package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"bunkmate/internal/domain/entity"
	"bunkmate/pkg/errors"
)

type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

// Principal verifies a Firebase ID token. Name and email come from the token
// claims, so no extra user lookup is made.
func (f *FirebaseAuthClient) Principal(ctx context.Context, idToken string) (*entity.Principal, error) {
	if idToken == "" {
		return nil, errors.Unauthorized("Missing ID token", nil)
	}

	token, err := f.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		if auth.IsIDTokenExpired(err) {
			return nil, errors.Unauthorized("ID token has expired", err)
		}
		return nil, errors.Unauthorized("Invalid ID token", err)
	}

	principal := &entity.Principal{ID: token.UID}
	if name, ok := token.Claims["name"].(string); ok {
		principal.DisplayName = name
	}
	if email, ok := token.Claims["email"].(string); ok {
		principal.Email = email
	}
	return principal, nil
}
