package session

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
)

const tokenKey = "session_token"

// memoryStore keeps the token in a process-local cache. The entry expires
// together with the JWT it carries, so a stale token is never returned.
type memoryStore struct {
	cache *cache.Cache
}

func newMemoryStore() *memoryStore {
	// Purge expired entries every 10 minutes; the default TTL is only used
	// for tokens whose expiry cannot be read.
	return &memoryStore{cache: cache.New(1*time.Hour, 10*time.Minute)}
}

func (s *memoryStore) Load(ctx context.Context) (string, error) {
	if x, found := s.cache.Get(tokenKey); found {
		return x.(string), nil
	}
	return "", nil
}

func (s *memoryStore) Save(ctx context.Context, token string) error {
	s.cache.Set(tokenKey, token, tokenTTL(token))
	return nil
}

func (s *memoryStore) Clear(ctx context.Context) error {
	s.cache.Delete(tokenKey)
	return nil
}

func (s *memoryStore) Close() error {
	return nil
}

// tokenTTL derives a cache lifetime from the JWT exp claim without verifying
// the signature. Verification is the backend's job; the client only needs to
// know when to stop presenting the token.
func tokenTTL(token string) time.Duration {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return cache.DefaultExpiration
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return cache.DefaultExpiration
	}
	ttl := time.Until(exp.Time)
	if ttl <= 0 {
		return time.Nanosecond // already expired, drop on next purge
	}
	return ttl
}
