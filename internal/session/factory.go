package session

import (
	"github.com/redis/go-redis/v9"
)

// StoreDriver selects where the session token is persisted.
type StoreDriver string

const (
	DriverMemory StoreDriver = "memory"
	DriverFile   StoreDriver = "file"
	DriverRedis  StoreDriver = "redis"
)

type storeConfig struct {
	tokenFile string
	redisURL  string
}

type StoreOption func(*storeConfig)

// WithTokenFile sets the path used by the file driver.
func WithTokenFile(path string) StoreOption {
	return func(c *storeConfig) { c.tokenFile = path }
}

// WithRedisURL sets the connection URL used by the redis driver.
func WithRedisURL(url string) StoreOption {
	return func(c *storeConfig) { c.redisURL = url }
}

// NewStore creates a token store for the given driver.
func NewStore(driver StoreDriver, opts ...StoreOption) (Store, error) {
	config := &storeConfig{}
	for _, opt := range opts {
		opt(config)
	}

	switch driver {
	case DriverMemory:
		return newMemoryStore(), nil

	case DriverFile:
		if config.tokenFile == "" {
			return nil, ErrInvalidConfig
		}
		return newFileStore(config.tokenFile), nil

	case DriverRedis:
		if config.redisURL == "" {
			return nil, ErrInvalidConfig
		}
		redisOpts, err := redis.ParseURL(config.redisURL)
		if err != nil {
			return nil, err
		}
		return newRedisStore(redis.NewClient(redisOpts)), nil

	default:
		return nil, ErrInvalidStoreDriver
	}
}
