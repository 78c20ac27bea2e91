package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/mossy-p/docsync/config"
	"github.com/redis/go-redis/v9"
)

// Store is the relay's Redis-backed room directory. It keeps room entries
// and live peer sets; it never stores relayed events.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Connect opens a Redis client and checks the connection.
func Connect(ctx context.Context, cfg config.RedisConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewStore(client, cfg.Prefix, cfg.RoomTTL), nil
}

// NewStore wraps an existing client.
func NewStore(client *redis.Client, prefix string, ttl time.Duration) *Store {
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Client returns the underlying Redis client.
func (s *Store) Client() *redis.Client {
	return s.client
}

func (s *Store) roomKey(roomID string) string  { return s.prefix + "room:" + roomID }
func (s *Store) codeKey(code string) string    { return s.prefix + "code:" + code }
func (s *Store) peersKey(roomID string) string { return s.prefix + "room:" + roomID + ":peers" }
