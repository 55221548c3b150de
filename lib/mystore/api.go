package mystore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MarcGrol/poststudio/lib/mytime"
)

type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

type Store[T any] interface {
	// Put stores value under uid. A ttl of zero means the value never expires.
	Put(c context.Context, uid string, value T, ttl time.Duration) error
	// PutIfAbsent atomically stores value only when uid is not present yet and reports whether it did.
	PutIfAbsent(c context.Context, uid string, value T, ttl time.Duration) (bool, error)
	Get(c context.Context, uid string) (T, bool, error)
	Delete(c context.Context, uid string) error
	List(c context.Context) ([]T, error)
	Ping(c context.Context) error
}

type Config struct {
	Type  StoreType
	Redis RedisOptions
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

func ParseStoreType(s string) StoreType {
	switch strings.ToLower(s) {
	case "redis":
		return StoreTypeRedis
	default:
		return StoreTypeMemory
	}
}

// New creates a store for values of type T. The namespace keeps the keys of different stores
// apart when they share a backend.
func New[T any](c context.Context, cfg Config, namespace string, nower mytime.Nower) (Store[T], func(), error) {
	switch cfg.Type {
	case StoreTypeRedis:
		store, cleanup, err := newRedisStore[T](c, cfg.Redis, namespace)
		if err != nil {
			return nil, cleanup, err
		}
		return store, cleanup, nil
	case StoreTypeMemory, "":
		store, cleanup, err := NewInMemoryStore[T](c, nower)
		if err != nil {
			return nil, cleanup, err
		}
		return store, cleanup, nil
	default:
		return nil, func() {}, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}
