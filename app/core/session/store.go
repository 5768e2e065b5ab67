package session

import (
	"sync"
	"time"
)

// DefaultIdleTimeout is how long a session may sit untouched before it
// is discarded. Ten minutes keeps abandoned wizards from swallowing a
// user's next command.
const DefaultIdleTimeout = 10 * time.Minute

// Store holds every in-progress conversation, keyed by (user, chat).
// It only guards its own map; message ordering per key is enforced
// upstream by the dispatcher, so at most one goroutine mutates a given
// session at a time.
type Store struct {
	mu       sync.Mutex
	sessions map[Key]*Session
	idle     time.Duration
	now      func() time.Time
}

func NewStore(idle time.Duration) *Store {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Store{
		sessions: make(map[Key]*Session),
		idle:     idle,
		now:      time.Now,
	}
}

// Get returns the live session for key. An expired session is removed
// and reported as absent, so the user's message starts a fresh command
// lookup instead of being swallowed by a stale wizard.
func (s *Store) Get(key Key) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[key]
	if !ok {
		return nil, false
	}
	if s.now().Sub(sess.UpdatedAt) > s.idle {
		delete(s.sessions, key)
		return nil, false
	}
	return sess, true
}

func (s *Store) Put(key Key, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.UpdatedAt = s.now()
	s.sessions[key] = sess
}

func (s *Store) Remove(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}

// Len reports the number of live sessions, for status endpoints.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
