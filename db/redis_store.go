package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
)

// RedisStore persists the roster collections as plain string keys in Redis
type RedisStore struct {
	Client *redis.Client
	Prefix string // Prepended to every key, e.g. "roster:"
}

// NewRedisStore creates a RedisStore over an existing client
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		Client: client,
		Prefix: prefix,
	}
}

func (s *RedisStore) key(k string) string {
	return s.Prefix + k
}

// Get reads a key; redis.Nil means the key does not exist
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.Client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		log.Printf("Error reading key %s: %v", s.key(key), err)
		return "", false, fmt.Errorf("failed to read %s from Redis: %w", key, err)
	}
	return val, true, nil
}

// Set writes a key with no expiry
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.Client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		log.Printf("Error writing key %s: %v", s.key(key), err)
		return fmt.Errorf("failed to write %s to Redis: %w", key, err)
	}
	return nil
}

// SetIfAbsent uses SETNX so concurrent initializers do not clobber each other
func (s *RedisStore) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	ok, err := s.Client.SetNX(ctx, s.key(key), value, 0).Result()
	if err != nil {
		log.Printf("Error initializing key %s: %v", s.key(key), err)
		return false, fmt.Errorf("failed to initialize %s in Redis: %w", key, err)
	}
	return ok, nil
}

// SetMany writes all keys inside MULTI/EXEC so they land together
func (s *RedisStore) SetMany(ctx context.Context, values map[string]string) error {
	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range values {
			pipe.Set(ctx, s.key(key), value, 0)
		}
		return nil
	})
	if err != nil {
		log.Printf("Error writing %d keys: %v", len(values), err)
		return fmt.Errorf("failed to write keys to Redis: %w", err)
	}
	return nil
}

// InitializeRedisClient creates and tests a Redis client connection
func InitializeRedisClient(ctx context.Context, addr, password string, dbIndex int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       dbIndex,
	})

	// Ping Redis to check connection
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis at %s: %w", addr, err)
	}

	log.Printf("Successfully connected to Redis %s DB %d", addr, dbIndex)
	return rdb, nil
}
