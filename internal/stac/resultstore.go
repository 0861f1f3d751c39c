package stac

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/vpremier/data-download/internal/scene"
)

// ResultSet is a complete, deduplicated and sorted search result. Paging
// through it does not query the catalogue again.
type ResultSet struct {
	Collection string
	Items      []*Item
	Summary    *scene.Summary
	Tiles      []string
	Sensors    []string
	// Params are the query parameters that produced the set.
	Params map[string][]string
}

// ResultStore keeps result sets between page requests.
type ResultStore interface {
	// Store saves a result set and returns a short token to reference it
	Store(rs *ResultSet) (token string, err error)

	// Retrieve gets a result set by its token
	Retrieve(token string) (*ResultSet, error)

	Delete(token string) error
}

type resultEntry struct {
	set       *ResultSet
	expiresAt time.Time
}

// MemoryResultStore implements ResultStore in memory with a TTL. Expired
// entries are swept by a background goroutine until Stop is called.
type MemoryResultStore struct {
	mu       sync.RWMutex
	entries  map[string]resultEntry
	ttl      time.Duration
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryResultStore creates a store whose entries live for ttl.
func NewMemoryResultStore(ttl, cleanupInterval time.Duration) *MemoryResultStore {
	s := &MemoryResultStore{
		entries:  make(map[string]resultEntry),
		ttl:      ttl,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	go s.cleanupLoop(cleanupInterval)
	return s
}

// Store saves a result set and returns its token.
func (s *MemoryResultStore) Store(rs *ResultSet) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = resultEntry{set: rs, expiresAt: s.now().Add(s.ttl)}
	return token, nil
}

// Retrieve gets a result set by its token.
func (s *MemoryResultStore) Retrieve(token string) (*ResultSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[token]
	if !ok {
		return nil, ErrResultNotFound
	}
	if s.now().After(entry.expiresAt) {
		return nil, ErrResultExpired
	}
	return entry.set, nil
}

// Delete removes a result set.
func (s *MemoryResultStore) Delete(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
	return nil
}

// Len returns the number of stored sets, expired ones included.
func (s *MemoryResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stop ends the background cleanup. It is safe to call more than once.
func (s *MemoryResultStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *MemoryResultStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopChan:
			return
		}
	}
}

func (s *MemoryResultStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for token, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, token)
		}
	}
}

// generateToken returns 128 random bits as hex.
func generateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Errors returned by ResultStore implementations.
var (
	ErrResultNotFound = resultStoreError("result set not found")
	ErrResultExpired  = resultStoreError("result set expired")
)

type resultStoreError string

func (e resultStoreError) Error() string {
	return string(e)
}
