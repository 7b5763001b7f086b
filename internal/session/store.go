// Package session keeps bounded per-user conversation history.
package session

import (
	"sync"

	"github.com/piaaz/botfleet/internal/llm"
)

// Store holds conversation history keyed by platform user ID. Histories
// are created lazily and capped at a fixed number of messages, so memory
// stays bounded no matter how long a conversation runs.
type Store struct {
	mu   sync.Mutex
	max  int
	hist map[string][]llm.Message
}

// NewStore creates a Store keeping at most max messages per user.
func NewStore(max int) *Store {
	if max < 1 {
		max = 1
	}
	return &Store{
		max:  max,
		hist: make(map[string][]llm.Message),
	}
}

// History returns a copy of the user's conversation, oldest first.
func (s *Store) History(userID string) []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.hist[userID]
	out := make([]llm.Message, len(h))
	copy(out, h)
	return out
}

// Append adds messages to the user's history, evicting the oldest
// entries once the cap is exceeded.
func (s *Store) Append(userID string, msgs ...llm.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := append(s.hist[userID], msgs...)
	if len(h) > s.max {
		h = h[len(h)-s.max:]
	}
	s.hist[userID] = h
}

// Reset drops the user's history.
func (s *Store) Reset(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hist, userID)
}

// Users returns the number of users with stored history.
func (s *Store) Users() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hist)
}
