package mystore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/redis/rueidis"
)

type redisStore[T any] struct {
	client rueidis.Client
	prefix string
}

func newRedisStore[T any](c context.Context, opts RedisOptions, namespace string) (*redisStore[T], func(), error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{opts.Addr},
		Password:     opts.Password,
		SelectDB:     opts.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to create redis client: %w", err)
	}

	return newRedisStoreFromClient[T](client, namespace), client.Close, nil
}

func newRedisStoreFromClient[T any](client rueidis.Client, namespace string) *redisStore[T] {
	return &redisStore[T]{
		client: client,
		prefix: namespace + ":",
	}
}

func (s *redisStore[T]) key(uid string) string {
	return s.prefix + uid
}

func (s *redisStore[T]) Put(c context.Context, uid string, value T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", uid, err)
	}

	cmd := s.client.B().Set().Key(s.key(uid)).Value(string(data)).Build()
	if ttl > 0 {
		cmd = s.client.B().Set().Key(s.key(uid)).Value(string(data)).ExSeconds(ttlSeconds(ttl)).Build()
	}

	err = s.client.Do(c, cmd).Error()
	if err != nil {
		return fmt.Errorf("failed to save %s to redis: %w", uid, err)
	}

	return nil
}

func (s *redisStore[T]) PutIfAbsent(c context.Context, uid string, value T, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to marshal %s: %w", uid, err)
	}

	cmd := s.client.B().Set().Key(s.key(uid)).Value(string(data)).Nx().Build()
	if ttl > 0 {
		cmd = s.client.B().Set().Key(s.key(uid)).Value(string(data)).Nx().ExSeconds(ttlSeconds(ttl)).Build()
	}

	err = s.client.Do(c, cmd).Error()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to save %s to redis: %w", uid, err)
	}

	return true, nil
}

func (s *redisStore[T]) Get(c context.Context, uid string) (T, bool, error) {
	var result T

	raw, err := s.client.Do(c, s.client.B().Get().Key(s.key(uid)).Build()).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return result, false, nil
		}
		return result, false, fmt.Errorf("failed to get %s from redis: %w", uid, err)
	}

	err = json.Unmarshal([]byte(raw), &result)
	if err != nil {
		return result, false, fmt.Errorf("failed to unmarshal %s: %w", uid, err)
	}

	return result, true, nil
}

func (s *redisStore[T]) Delete(c context.Context, uid string) error {
	err := s.client.Do(c, s.client.B().Del().Key(s.key(uid)).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to delete %s from redis: %w", uid, err)
	}
	return nil
}

func (s *redisStore[T]) List(c context.Context) ([]T, error) {
	result := []T{}

	cursor := uint64(0)
	for {
		entry, err := s.client.Do(c, s.client.B().Scan().Cursor(cursor).Match(s.prefix+"*").Count(100).Build()).AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("failed to scan redis: %w", err)
		}

		for _, key := range entry.Elements {
			uid := key[len(s.prefix):]
			value, exists, err := s.Get(c, uid)
			if err != nil {
				return nil, err
			}
			if exists {
				result = append(result, value)
			}
		}

		cursor = entry.Cursor
		if cursor == 0 {
			break
		}
	}

	return result, nil
}

func (s *redisStore[T]) Ping(c context.Context) error {
	return s.client.Do(c, s.client.B().Ping().Build()).Error()
}

// ttlSeconds rounds up: redis expiry has second granularity and must be at least 1.
func ttlSeconds(ttl time.Duration) int64 {
	return int64(math.Max(1, math.Ceil(ttl.Seconds())))
}
