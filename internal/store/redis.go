package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/memorymate/backend/internal/models"
	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "memorymate:games"

// RedisBackend stores the whole collection as one JSON value under a key.
type RedisBackend struct {
	client *redis.Client
	key    string
}

func NewRedisBackend(client *redis.Client, key string) *RedisBackend {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisBackend{client: client, key: key}
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (b *RedisBackend) List(ctx context.Context) ([]models.Game, error) {
	data, err := b.client.Get(ctx, b.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", b.key, err)
	}
	var games []models.Game
	if err := json.Unmarshal(data, &games); err != nil {
		return nil, fmt.Errorf("decode games: %w", err)
	}
	return games, nil
}

func (b *RedisBackend) Save(ctx context.Context, games []models.Game) error {
	if games == nil {
		games = []models.Game{}
	}
	data, err := json.Marshal(games)
	if err != nil {
		return fmt.Errorf("encode games: %w", err)
	}
	if err := b.client.Set(ctx, b.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", b.key, err)
	}
	return nil
}
