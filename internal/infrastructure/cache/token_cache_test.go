package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bunkmate/internal/adapter/repository/memory"
	"bunkmate/internal/domain/entity"
)

func TestTokenCacheWithoutRedis(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewDeliveryTokenRepository(memory.NewStore())
	c := NewTokenCache(nil, repo, time.Minute)

	token, err := c.Resolve(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, token, "no registration resolves to nothing")

	require.NoError(t, c.Register(ctx, &entity.DeliveryToken{UserID: "bob", Kind: entity.TokenFCM, Value: "fcm-1"}))
	token, err = c.Resolve(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "fcm-1", token.Value)

	require.NoError(t, c.Invalidate(ctx, "bob"))
	token, err = c.Resolve(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, token)
}

func TestTokenKeyIsNamespaced(t *testing.T) {
	assert.Equal(t, "bunkmate:token:u1", tokenKey("u1"))
}
