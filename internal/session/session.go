// Package session keeps per-client navigator state, the directory a client
// last submitted, so concurrent panels never see each other's choices.
package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"next-nav-server/internal/metrics"
)

// DefaultCapacity is used when a Store is created with a non-positive capacity.
const DefaultCapacity = 1024

// Session is the state of one client.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu      sync.RWMutex
	lastDir string
}

// LastSubmittedDir returns the last directory accepted by submit_dir, or "".
func (s *Session) LastSubmittedDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastDir
}

// SetLastSubmittedDir records dir as the session's current directory.
func (s *Session) SetLastSubmittedDir(dir string) {
	s.mu.Lock()
	s.lastDir = dir
	s.mu.Unlock()
}

// New creates a detached session with a fresh ID.
func New() *Session {
	return &Session{ID: uuid.NewString(), CreatedAt: time.Now()}
}

// Store holds sessions, evicting the least recently used one when full.
// It is safe for concurrent use.
type Store struct {
	cache *lru.Cache[string, *Session]
}

// NewStore creates a Store holding at most capacity sessions.
func NewStore(capacity int) (*Store, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	cache, err := lru.New[string, *Session](capacity)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	return &Store{cache: cache}, nil
}

// New creates and stores a new session.
func (s *Store) New() *Session {
	sess := New()
	s.cache.Add(sess.ID, sess)
	metrics.SetActiveSessions(s.cache.Len())
	return sess
}

// Get returns the session with id, marking it recently used.
func (s *Store) Get(id string) (*Session, bool) {
	return s.cache.Get(id)
}

// GetOrCreate returns the session with id. Unknown or empty ids get a new
// session, whose ID is then different from id.
func (s *Store) GetOrCreate(id string) *Session {
	id = strings.TrimSpace(id)
	if id != "" {
		if sess, ok := s.cache.Get(id); ok {
			return sess
		}
	}
	return s.New()
}

// Remove drops the session with id.
func (s *Store) Remove(id string) {
	s.cache.Remove(id)
	metrics.SetActiveSessions(s.cache.Len())
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	return s.cache.Len()
}
