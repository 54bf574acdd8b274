package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"storefront-checkout/internal/checkout"
	"storefront-checkout/internal/domain"
)

const keyPrefix = "checkout_session:"

type redisRepo struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewRedis stores sessions as JSON values that expire ttl after the last save.
func NewRedis(client *redis.Client, ttl time.Duration, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &redisRepo{client: client, ttl: ttl, logger: logger}
}

func (r *redisRepo) Get(ctx context.Context, id string) (*checkout.Session, error) {
	data, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		r.logger.Printf("session repo: get id=%s error=%v", id, err)
		return nil, err
	}
	var s checkout.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

func (r *redisRepo) Save(ctx context.Context, s *checkout.Session) error {
	key := keyPrefix + s.ID
	next := *s
	next.Version++
	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := storedVersion(ctx, tx, key)
		switch {
		case errors.Is(err, redis.Nil):
			if s.Version != 0 {
				return domain.ErrNotFound
			}
		case err != nil:
			return err
		case stored != s.Version:
			return domain.ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		err = domain.ErrConflict
	}
	if err != nil {
		if !errors.Is(err, domain.ErrConflict) && !errors.Is(err, domain.ErrNotFound) {
			r.logger.Printf("session repo: save id=%s error=%v", s.ID, err)
		}
		return err
	}
	s.Version = next.Version
	return nil
}

func storedVersion(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if err != nil {
		return 0, err
	}
	var v struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, fmt.Errorf("decode stored session: %w", err)
	}
	return v.Version, nil
}

func (r *redisRepo) Delete(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, keyPrefix+id).Result()
	if err != nil {
		r.logger.Printf("session repo: delete id=%s error=%v", id, err)
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
