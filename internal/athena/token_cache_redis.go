package athena

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenCache stores the access token in Redis so that every replica
// behind the load balancer reuses one token.
type RedisTokenCache struct {
	client *redis.Client
	key    string
}

type cachedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewRedisTokenCache keys the token by client id.
func NewRedisTokenCache(client *redis.Client, clientID string) *RedisTokenCache {
	if client == nil {
		return nil
	}
	return &RedisTokenCache{
		client: client,
		key:    "athena:token:" + clientID,
	}
}

// Get returns the stored token or ErrCacheMiss.
func (c *RedisTokenCache) Get(ctx context.Context) (string, time.Time, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", time.Time{}, ErrCacheMiss
		}
		return "", time.Time{}, fmt.Errorf("athena: token cache get: %w", err)
	}
	var ct cachedToken
	if err := json.Unmarshal(data, &ct); err != nil {
		return "", time.Time{}, fmt.Errorf("athena: token cache decode: %w", err)
	}
	if ct.Token == "" {
		return "", time.Time{}, ErrCacheMiss
	}
	return ct.Token, ct.ExpiresAt, nil
}

// Set stores the token until it expires.
func (c *RedisTokenCache) Set(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(cachedToken{Token: token, ExpiresAt: expiresAt.UTC()})
	if err != nil {
		return fmt.Errorf("athena: token cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("athena: token cache set: %w", err)
	}
	return nil
}

// Delete removes the stored token if it is still token. Another replica may
// already have replaced it with a fresh one, which is left alone.
func (c *RedisTokenCache) Delete(ctx context.Context, token string) error {
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, c.key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		var ct cachedToken
		if err := json.Unmarshal(data, &ct); err == nil && ct.Token != token {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, c.key)
			return nil
		})
		return err
	}, c.key)
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("athena: token cache delete: %w", err)
	}
	return nil
}

var _ TokenCache = (*RedisTokenCache)(nil)
