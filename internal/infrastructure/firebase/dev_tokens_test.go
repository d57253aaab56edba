package firebase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bunkmate/pkg/errors"
)

func TestDevIdentityProvider(t *testing.T) {
	p := DevIdentityProvider{}

	principal, err := p.Principal(context.Background(), "dev:alice:Alice Liddell")
	require.NoError(t, err)
	assert.Equal(t, "alice", principal.ID)
	assert.Equal(t, "Alice Liddell", principal.DisplayName)

	principal, err = p.Principal(context.Background(), "dev:bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", principal.DisplayName)

	for _, token := range []string{"", "dev:", "eyJhbGciOi"} {
		_, err := p.Principal(context.Background(), token)
		assert.True(t, errors.Is(err, errors.CodeUnauthorized), token)
	}
}

func TestDevTokenRoundTrip(t *testing.T) {
	principal, err := DevIdentityProvider{}.Principal(context.Background(), DevToken("carol", "Carol"))
	require.NoError(t, err)
	assert.Equal(t, "carol", principal.ID)
	assert.Equal(t, "Carol", principal.DisplayName)

	assert.Equal(t, "dev:dave", DevToken("dave", ""))
}
