// Package session keeps per-session chat history in memory. History is an
// append-only log; sessions are created implicitly on first append.
package session

import (
	"sync"
	"time"

	"github.com/caldermed/triage/internal/domain"
)

// Store holds chat turns keyed by session id. Appends within a session
// are serialized so interleaved writers never corrupt turn order.
type Store struct {
	mu       sync.RWMutex
	sessions map[string][]domain.ChatTurn
}

func NewStore() *Store {
	return &Store{sessions: make(map[string][]domain.ChatTurn)}
}

// Append adds a turn to the session's history, creating the session if it
// does not exist. A zero timestamp is filled in at append time.
func (s *Store) Append(sessionID string, turn domain.ChatTurn) error {
	if err := domain.ValidateChatTurn(&turn); err != nil {
		return err
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], turn)
	return nil
}

// History returns the session's turns in append order. An unknown session
// yields an empty history, not an error.
func (s *Store) History(sessionID string) []domain.ChatTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[sessionID]
	return append([]domain.ChatTurn(nil), turns...)
}

// Clear removes the session and its history. Clearing an unknown session
// is a no-op.
func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Window returns the most recent n turns, or all turns when there are
// fewer than n.
func Window(turns []domain.ChatTurn, n int) []domain.ChatTurn {
	if n <= 0 || len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
