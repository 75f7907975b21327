package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"titan/internal/config"
	"titan/internal/models"

	"github.com/redis/go-redis/v9"
)

// ErrMirrorEmpty is returned by Load when nothing has been saved yet.
var ErrMirrorEmpty = errors.New("bookings mirror is empty")

// RedisMirror stores the whole sequence as one JSON value under a single key.
type RedisMirror struct {
	client *redis.Client
	key    string
}

// NewRedisClient builds a client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisMirror(client *redis.Client, key string) *RedisMirror {
	if key == "" {
		key = "titan:bookings"
	}
	return &RedisMirror{client: client, key: key}
}

func (r *RedisMirror) Load(ctx context.Context) ([]models.Booking, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMirrorEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings from redis: %w", err)
	}

	var bookings []models.Booking
	if err := json.Unmarshal(val, &bookings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bookings: %w", err)
	}
	return bookings, nil
}

func (r *RedisMirror) Save(ctx context.Context, bookings []models.Booking) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	data, err := json.Marshal(bookings)
	if err != nil {
		return fmt.Errorf("failed to marshal bookings: %w", err)
	}

	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set bookings in redis: %w", err)
	}
	return nil
}

// Ping checks the redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the redis connection if there is one.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
