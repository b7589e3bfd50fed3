package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const menuKey = "menu"

// RedisStore keeps conversation states and the menu cache in Redis.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an established Redis client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	if rdb == nil {
		panic("state: redis client cannot be nil")
	}
	return &RedisStore{rdb: rdb}
}

// Get returns the stored state for key, reporting absence without error.
func (s *RedisStore) Get(ctx context.Context, key string) (State, bool, error) {
	val, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("state: get %s: %w", key, err)
	}
	return State(val), true, nil
}

// Set overwrites the state for key unconditionally (last writer wins).
func (s *RedisStore) Set(ctx context.Context, key string, st State) error {
	if err := s.rdb.Set(ctx, key, string(st), 0).Err(); err != nil {
		return fmt.Errorf("state: set %s: %w", key, err)
	}
	return nil
}

// SetMenu replaces the cached catalog snapshot.
func (s *RedisStore) SetMenu(ctx context.Context, menu []CachedProduct) error {
	data, err := json.Marshal(menu)
	if err != nil {
		return fmt.Errorf("state: marshal menu: %w", err)
	}
	if err := s.rdb.Set(ctx, menuKey, data, 0).Err(); err != nil {
		return fmt.Errorf("state: set menu: %w", err)
	}
	return nil
}

// Menu loads the cached catalog snapshot, reporting absence without error.
func (s *RedisStore) Menu(ctx context.Context) ([]CachedProduct, bool, error) {
	data, err := s.rdb.Get(ctx, menuKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("state: get menu: %w", err)
	}
	var menu []CachedProduct
	if err := json.Unmarshal(data, &menu); err != nil {
		return nil, false, fmt.Errorf("state: decode menu: %w", err)
	}
	return menu, true, nil
}
