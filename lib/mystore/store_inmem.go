package mystore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MarcGrol/poststudio/lib/mytime"
)

type inMemoryEntry[T any] struct {
	value     T
	expiresAt time.Time
}

type InMemoryStore[T any] struct {
	sync.Mutex
	nower mytime.Nower
	Items map[string]inMemoryEntry[T]
}

func NewInMemoryStore[T any](c context.Context, nower mytime.Nower) (*InMemoryStore[T], func(), error) {
	if nower == nil {
		nower = mytime.RealNower{}
	}
	return &InMemoryStore[T]{
		nower: nower,
		Items: make(map[string]inMemoryEntry[T]),
	}, func() {}, nil
}

func (s *InMemoryStore[T]) Put(c context.Context, uid string, value T, ttl time.Duration) error {
	s.Lock()
	defer s.Unlock()

	s.Items[uid] = s.newEntry(value, ttl)

	return nil
}

func (s *InMemoryStore[T]) PutIfAbsent(c context.Context, uid string, value T, ttl time.Duration) (bool, error) {
	s.Lock()
	defer s.Unlock()

	if _, exists := s.lookup(uid); exists {
		return false, nil
	}
	s.Items[uid] = s.newEntry(value, ttl)

	return true, nil
}

func (s *InMemoryStore[T]) Get(c context.Context, uid string) (T, bool, error) {
	s.Lock()
	defer s.Unlock()

	entry, exists := s.lookup(uid)

	return entry.value, exists, nil
}

func (s *InMemoryStore[T]) Delete(c context.Context, uid string) error {
	s.Lock()
	defer s.Unlock()

	delete(s.Items, uid)

	return nil
}

func (s *InMemoryStore[T]) List(c context.Context) ([]T, error) {
	s.Lock()
	defer s.Unlock()

	uids := make([]string, 0, len(s.Items))
	for uid := range s.Items {
		if _, exists := s.lookup(uid); exists {
			uids = append(uids, uid)
		}
	}
	sort.Strings(uids)

	result := make([]T, 0, len(uids))
	for _, uid := range uids {
		result = append(result, s.Items[uid].value)
	}

	return result, nil
}

func (s *InMemoryStore[T]) Ping(c context.Context) error {
	return nil
}

func (s *InMemoryStore[T]) newEntry(value T, ttl time.Duration) inMemoryEntry[T] {
	entry := inMemoryEntry[T]{value: value}
	if ttl > 0 {
		entry.expiresAt = s.nower.Now().Add(ttl)
	}
	return entry
}

// lookup must be called with the lock held; expired entries are evicted on access.
func (s *InMemoryStore[T]) lookup(uid string) (inMemoryEntry[T], bool) {
	entry, exists := s.Items[uid]
	if !exists {
		return inMemoryEntry[T]{}, false
	}
	if !entry.expiresAt.IsZero() && !s.nower.Now().Before(entry.expiresAt) {
		delete(s.Items, uid)
		return inMemoryEntry[T]{}, false
	}
	return entry, true
}
