package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"bunkmate/internal/domain/entity"
	"bunkmate/internal/domain/repository"
	"bunkmate/pkg/errors"
	"bunkmate/pkg/logger"
)

const tokenKeyPrefix = "bunkmate:token:"

// TokenCache resolves delivery tokens through Redis, falling back to the
// repository on a miss. A nil Redis client disables caching.
type TokenCache struct {
	redis *redis.Client
	repo  repository.DeliveryTokenRepository
	ttl   time.Duration
}

func NewTokenCache(client *redis.Client, repo repository.DeliveryTokenRepository, ttl time.Duration) *TokenCache {
	return &TokenCache{
		redis: client,
		repo:  repo,
		ttl:   ttl,
	}
}

// NewRedisClient parses a redis:// URL and checks the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func tokenKey(userID string) string {
	return tokenKeyPrefix + userID
}

func (c *TokenCache) Resolve(ctx context.Context, userID string) (*entity.DeliveryToken, error) {
	if c.redis != nil {
		raw, err := c.redis.Get(ctx, tokenKey(userID)).Bytes()
		switch {
		case err == nil:
			var token entity.DeliveryToken
			if jsonErr := json.Unmarshal(raw, &token); jsonErr == nil {
				return &token, nil
			}
			logger.Warn("Discarding corrupt cached token for %s", userID)
		case err != redis.Nil:
			logger.Warn("Token cache read for %s failed: %v", userID, err)
		}
	}

	token, err := c.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	c.store(ctx, token)
	return token, nil
}

// Register saves a user's token and refreshes the cache entry.
func (c *TokenCache) Register(ctx context.Context, token *entity.DeliveryToken) error {
	if err := c.repo.Save(ctx, token); err != nil {
		return err
	}
	c.store(ctx, token)
	return nil
}

func (c *TokenCache) Invalidate(ctx context.Context, userID string) error {
	if c.redis != nil {
		if err := c.redis.Del(ctx, tokenKey(userID)).Err(); err != nil {
			logger.Warn("Token cache delete for %s failed: %v", userID, err)
		}
	}
	return c.repo.Delete(ctx, userID)
}

func (c *TokenCache) store(ctx context.Context, token *entity.DeliveryToken) {
	if c.redis == nil {
		return
	}
	raw, err := json.Marshal(token)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, tokenKey(token.UserID), raw, c.ttl).Err(); err != nil {
		logger.Warn("Token cache write for %s failed: %v", token.UserID, err)
	}
}
