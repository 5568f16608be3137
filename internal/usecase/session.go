package usecase

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/ai-intake-agent/internal/adapter/observability"
	"github.com/fairyhunter13/ai-intake-agent/internal/domain"
)

type sessionEntry struct {
	mu   sync.Mutex
	sess *domain.Session
}

// SessionStore holds live sessions in memory. Turns against the same session
// are serialized; different sessions proceed concurrently.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*sessionEntry)}
}

// Create starts a new session in the initial state; the first user turn
// moves it into data collection.
func (s *SessionStore) Create() domain.Session {
	sess := &domain.Session{
		ID:        uuid.NewString(),
		State:     domain.StateInitial,
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.sessions[sess.ID] = &sessionEntry{sess: sess}
	s.mu.Unlock()
	observability.SessionsActive.Inc()
	return *sess
}

// Get returns a snapshot of a session.
func (s *SessionStore) Get(id string) (domain.Session, error) {
	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return domain.Session{}, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return *entry.sess, nil
}

// Do runs fn with exclusive access to the session. Mutations made by fn are
// retained.
func (s *SessionStore) Do(id string, fn func(*domain.Session) error) error {
	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(entry.sess)
}
