package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cppla/chatdesk/models"
)

type memorySession struct {
	mu       sync.Mutex
	turns    []models.Turn
	lastUsed time.Time
	removed  bool
}

// MemorySessionStore keeps transcripts in process memory. Each session has
// its own lock; sessions idle for longer than ttl are dropped.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	ttl      time.Duration
	now      func() time.Time
}

// NewMemorySessionStore creates an in-process store. A ttl <= 0 keeps
// sessions until they are cleared.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: map[string]*memorySession{},
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemorySessionStore) expired(sess *memorySession, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.lastUsed) > s.ttl
}

// session returns the entry for id, creating it when create is set.
func (s *MemorySessionStore) session(id string, create bool) *memorySession {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess, ok := s.sessions[id]
	if ok {
		sess.mu.Lock()
		if s.expired(sess, now) {
			sess.removed = true
			delete(s.sessions, id)
			ok = false
		}
		sess.mu.Unlock()
	}
	if !ok {
		if !create {
			return nil
		}
		sess = &memorySession{lastUsed: now}
		s.sessions[id] = sess
	}
	return sess
}

func (s *MemorySessionStore) Append(ctx context.Context, sessionID string, turn models.Turn) (int, error) {
	for {
		sess := s.session(sessionID, true)
		sess.mu.Lock()
		if sess.removed {
			// lost a race with Clear or the sweeper; retry on a fresh entry
			sess.mu.Unlock()
			continue
		}
		sess.turns = append(sess.turns, turn)
		sess.lastUsed = s.now()
		n := len(sess.turns)
		sess.mu.Unlock()
		return n, nil
	}
}

func (s *MemorySessionStore) History(ctx context.Context, sessionID string) ([]models.Turn, error) {
	sess := s.session(sessionID, false)
	if sess == nil {
		return []models.Turn{}, nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.removed {
		return []models.Turn{}, nil
	}
	out := make([]models.Turn, len(sess.turns))
	copy(out, sess.turns)
	return out, nil
}

func (s *MemorySessionStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if ok {
		sess.mu.Lock()
		sess.removed = true
		sess.mu.Unlock()
	}
	return nil
}

func (s *MemorySessionStore) List(ctx context.Context) ([]models.SessionSummary, error) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	entries := make([]*memorySession, 0, len(s.sessions))
	for id, sess := range s.sessions {
		ids = append(ids, id)
		entries = append(entries, sess)
	}
	s.mu.Unlock()

	now := s.now()
	out := make([]models.SessionSummary, 0, len(ids))
	for i, sess := range entries {
		sess.mu.Lock()
		if !sess.removed && !s.expired(sess, now) {
			out = append(out, models.SessionSummary{
				ID:           ids[i],
				MessageCount: len(sess.turns),
				LastMessage:  Preview(sess.turns),
			})
		}
		sess.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Sweep drops idle sessions and returns how many were removed.
func (s *MemorySessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		if s.expired(sess, now) {
			sess.removed = true
			delete(s.sessions, id)
			removed++
		}
		sess.mu.Unlock()
	}
	return removed
}
