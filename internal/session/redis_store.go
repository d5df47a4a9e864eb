package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore keeps the token in Redis so several admin consoles on different
// hosts can share one authenticated session.
type redisStore struct {
	client *redis.Client
	key    string
}

func newRedisStore(client *redis.Client) *redisStore {
	return &redisStore{client: client, key: "ragchat:" + tokenKey}
}

func (s *redisStore) Load(ctx context.Context) (string, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s *redisStore) Save(ctx context.Context, token string) error {
	ttl := tokenTTL(token)
	if ttl <= time.Nanosecond {
		ttl = time.Hour
	}
	return s.client.Set(ctx, s.key, token, ttl).Err()
}

func (s *redisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
