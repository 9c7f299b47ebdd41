package session

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store keeps live sessions in memory until they expire
type Store struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// NewStore creates a store whose entries live for ttl after their last use
func NewStore(ttl time.Duration, cleanupInterval time.Duration) *Store {
	return &Store{
		cache: gocache.New(ttl, cleanupInterval),
		ttl:   ttl,
	}
}

// Put stores a session under its id
func (s *Store) Put(sess *Session) {
	s.cache.Set(sess.ID(), sess, gocache.DefaultExpiration)
}

// Get retrieves a live session and refreshes its expiry
func (s *Store) Get(id string) (*Session, error) {
	val, found := s.cache.Get(id)
	if !found {
		return nil, ErrNotFound
	}
	sess := val.(*Session)
	s.cache.Set(id, sess, gocache.DefaultExpiration)
	return sess, nil
}

// Delete removes a session
func (s *Store) Delete(id string) {
	s.cache.Delete(id)
}

// Len returns the number of stored sessions, expired ones included until cleanup
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

// TTL returns the idle lifetime of a session
func (s *Store) TTL() time.Duration {
	return s.ttl
}
