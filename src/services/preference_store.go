package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryPreferenceStore keeps preferences in process memory.
type MemoryPreferenceStore struct {
	mu     sync.RWMutex
	values map[int64]map[string]string
}

func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{values: make(map[int64]map[string]string)}
}

func (s *MemoryPreferenceStore) Get(_ context.Context, userID int64, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[userID][key]
	return v, ok, nil
}

func (s *MemoryPreferenceStore) Set(_ context.Context, userID int64, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values[userID] == nil {
		s.values[userID] = make(map[string]string)
	}
	s.values[userID][key] = value
	return nil
}

// CachedPreferenceStore is a read-through cache in front of another store.
// Writes go to the backing store first and refresh the cached entry.
type CachedPreferenceStore struct {
	next  PreferenceStore
	cache *cache.Cache
}

type cachedPreference struct {
	value string
	found bool
}

func NewCachedPreferenceStore(next PreferenceStore, ttl time.Duration) *CachedPreferenceStore {
	return &CachedPreferenceStore{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func preferenceCacheKey(userID int64, key string) string {
	return fmt.Sprintf("%d:%s", userID, key)
}

func (s *CachedPreferenceStore) Get(ctx context.Context, userID int64, key string) (string, bool, error) {
	ck := preferenceCacheKey(userID, key)
	if hit, ok := s.cache.Get(ck); ok {
		p := hit.(cachedPreference)
		return p.value, p.found, nil
	}
	v, found, err := s.next.Get(ctx, userID, key)
	if err != nil {
		return "", false, err
	}
	s.cache.SetDefault(ck, cachedPreference{value: v, found: found})
	return v, found, nil
}

func (s *CachedPreferenceStore) Set(ctx context.Context, userID int64, key, value string) error {
	ck := preferenceCacheKey(userID, key)
	if err := s.next.Set(ctx, userID, key, value); err != nil {
		s.cache.Delete(ck)
		return err
	}
	s.cache.SetDefault(ck, cachedPreference{value: value, found: true})
	return nil
}
