package storage

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"candidly/internal/config"
	"candidly/internal/errors"
)

const sessionKeyPrefix = "candidly:session:"

// RedisSessionStore keeps sessions as JSON values with a TTL, so several
// server replicas can share interview state.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ SessionStore = (*RedisSessionStore)(nil)

// NewRedisSessionStore connects to redis and verifies the connection.
func NewRedisSessionStore(ctx context.Context, cfg config.RedisConfig, ttl time.Duration) (*RedisSessionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to connect to redis", err).
			WithContext("addr", cfg.Addr)
	}
	return &RedisSessionStore{client: client, ttl: ttl}, nil
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

func (r *RedisSessionStore) Create(ctx context.Context, rec SessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ok, err := r.client.SetNX(ctx, sessionKey(rec.State.Token), data, r.ttl).Result()
	if err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to create session", err)
	}
	if !ok {
		return errors.NewStorageError(errors.ErrCodeStorageFailed, "session token already exists", nil)
	}
	return nil
}

func (r *RedisSessionStore) Get(ctx context.Context, token string) (SessionRecord, error) {
	data, err := r.client.Get(ctx, sessionKey(token)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return SessionRecord{}, unknownSession()
	}
	if err != nil {
		return SessionRecord{}, errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to load session", err)
	}
	var rec SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return SessionRecord{}, fmt.Errorf("decode session: %w", err)
	}
	return rec, nil
}

// Update overwrites an existing session and keeps its remaining TTL.
func (r *RedisSessionStore) Update(ctx context.Context, rec SessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	err = r.client.SetArgs(ctx, sessionKey(rec.State.Token), data, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if stderrors.Is(err, redis.Nil) {
		return unknownSession()
	}
	if err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to update session", err)
	}
	return nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to delete session", err)
	}
	return nil
}

// Close releases the redis connection pool
func (r *RedisSessionStore) Close() error {
	return r.client.Close()
}
