package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore is the identity-bound backing over Redis: one JSON value per
// owner key, optimistic saves via WATCH. A TTL may be set so abandoned
// sessions expire; expired refs surface as ErrNotFound.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. ttl <= 0 disables expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(ref string) string {
	return "quiz:session:" + ref
}

func (r *RedisStore) Create(ctx context.Context, state *State) (string, error) {
	ref := ownerRef(state.OwnerID)
	payload, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(ref), payload, r.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return ref, nil
}

func (r *RedisStore) Load(ctx context.Context, ref string) (*State, error) {
	payload, err := r.client.Get(ctx, redisKey(ref)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var s State
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, ref string, state *State, expectCursor int) error {
	key := redisKey(ref)
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		payload, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		var current State
		if err := json.Unmarshal(payload, &current); err != nil {
			return fmt.Errorf("decode session: %w", err)
		}
		if current.Cursor != expectCursor {
			return ErrConflict
		}
		next, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, r.ttl)
			return nil
		})
		return err
	}, key)

	// A racing write aborts the transaction; treat it the same as a failed
	// cursor check, since the caller must re-read either way.
	if errors.Is(err, redis.TxFailedErr) {
		return ErrConflict
	}
	return err
}
