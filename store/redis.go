package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	DefaultRedisAddr = "localhost:6379" // Process defaults of the usual Redis clients

	defaultDialTimeout = 5 * time.Second
	defaultIOTimeout   = 3 * time.Second
)

// RedisConfig holds the connection parameters for NewRedis. Zero values select the
// defaults.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
	IOTimeout   time.Duration // Read and write timeouts
}

// Redis is a ChallengeStore backed by a pooled Redis client. A single Redis is shared by
// all DNS servers.
type Redis struct {
	client *redis.Client
	addr   string
}

// NewRedis creates the client pool. No connection is attempted until the first command,
// so an unavailable Redis is not an error here. See Ping.
func NewRedis(cfg RedisConfig) *Redis {
	if len(cfg.Addr) == 0 {
		cfg.Addr = DefaultRedisAddr
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.IOTimeout <= 0 {
		cfg.IOTimeout = defaultIOTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize, // Zero means go-redis picks based on GOMAXPROCS
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.IOTimeout,
		WriteTimeout: cfg.IOTimeout,
		MaxRetries:   -1, // Lookups fail fast. Clients retry the DNS query instead.
	})

	return &Redis{client: client, addr: cfg.Addr}
}

// Challenge returns the payload stored for token or ErrNotFound.
func (t *Redis) Challenge(ctx context.Context, token string) (string, error) {
	val, err := t.client.Get(ctx, Key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", t.addr, err)
	}

	return val, nil
}

// Ping checks that Redis is reachable.
func (t *Redis) Ping(ctx context.Context) error {
	if err := t.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", t.addr, err)
	}

	return nil
}

// Addr returns the address the client connects to.
func (t *Redis) Addr() string {
	return t.addr
}

// Close releases all pooled connections.
func (t *Redis) Close() error {
	return t.client.Close()
}

var _ ChallengeStore = (*Redis)(nil)
