package auth

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// SessionStore remembers the ids of tokens that have not been logged out.
type SessionStore interface {
	Add(tokenID string, ttl time.Duration)
	Has(tokenID string) bool
	Remove(tokenID string)
}

// CacheSessionStore keeps sessions in memory. Sessions end with the
// process.
type CacheSessionStore struct {
	cache *cache.Cache
}

func NewCacheSessionStore(cleanupInterval time.Duration) *CacheSessionStore {
	return &CacheSessionStore{
		cache: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

func (s *CacheSessionStore) Add(tokenID string, ttl time.Duration) {
	s.cache.Set(tokenID, struct{}{}, ttl)
}

func (s *CacheSessionStore) Has(tokenID string) bool {
	_, found := s.cache.Get(tokenID)
	return found
}

func (s *CacheSessionStore) Remove(tokenID string) {
	s.cache.Delete(tokenID)
}
