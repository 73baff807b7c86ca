// Package memory is an in-memory turn store for tests and local development.
package memory

import (
	"context"
	"sync"

	"github.com/kaystudios/assistant-gateway/internal/domain"
	"github.com/kaystudios/assistant-gateway/internal/history"
)

// Store keeps turns per session in insertion order.
type Store struct {
	mu    sync.RWMutex
	turns map[string][]domain.Turn
}

var _ history.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{turns: make(map[string][]domain.Turn)}
}

// Query returns up to limit turns for the session, newest first, matching
// the reverse-scan behavior of the production store.
func (s *Store) Query(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session := s.turns[sessionID]
	if limit <= 0 || limit > len(session) {
		limit = len(session)
	}

	result := make([]domain.Turn, 0, limit)
	for i := len(session) - 1; i >= len(session)-limit; i-- {
		result = append(result, session[i])
	}
	return result, nil
}

// Put appends a turn to its session.
func (s *Store) Put(ctx context.Context, turn domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns[turn.SessionID] = append(s.turns[turn.SessionID], turn)
	return nil
}

func (s *Store) Close() error { return nil }
