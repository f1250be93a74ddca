package console

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aegisai/aegisdash/internal/actions"
	"github.com/aegisai/aegisdash/internal/view"
	"github.com/google/uuid"
)

// Session is one viewer: its active view and pending block
type Session struct {
	ID     string
	Router *view.Router
	Gate   *actions.Gate

	lastSeen atomic.Int64
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// LastSeen returns when the session was last used
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// Sessions tracks viewers and expires idle ones
type Sessions struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	ttl       time.Duration
	refresher view.Refresher
}

// NewSessions creates a registry whose routers refresh through refresher
func NewSessions(ttl time.Duration, refresher view.Refresher) *Sessions {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Sessions{
		sessions:  make(map[string]*Session),
		ttl:       ttl,
		refresher: refresher,
	}
}

// Create starts a new session
func (s *Sessions) Create() *Session {
	sess := &Session{
		ID:     uuid.NewString(),
		Router: view.NewRouter(s.refresher),
		Gate:   &actions.Gate{},
	}
	sess.touch(time.Now())

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns a live session and marks it used
func (s *Sessions) Get(id string) (*Session, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()

	if ok {
		sess.touch(time.Now())
	}
	return sess, ok
}

// GetOrCreate returns the session for id, creating one when id is unknown
func (s *Sessions) GetOrCreate(id string) (sess *Session, created bool) {
	if sess, ok := s.Get(id); ok {
		return sess, false
	}
	return s.Create(), true
}

// Sweep drops sessions idle longer than the TTL and returns how many
func (s *Sessions) Sweep(now time.Time) int {
	cutoff := now.Add(-s.ttl).UnixNano()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Load() < cutoff {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of live sessions
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Run sweeps periodically until ctx ends
func (s *Sessions) Run(ctx context.Context) {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}
