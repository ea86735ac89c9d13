package store

import (
	"context"
	"sync"

	"toacrd.app/oracle/common/id"
	"toacrd.app/oracle/internal/model"
)

type userHistory struct {
	mu    sync.Mutex
	turns []model.Turn
}

// MemoryConversationStore keeps histories in process memory for the life of
// the process. Each user has its own lock; the map lock is only held to find
// or create a user's entry.
type MemoryConversationStore struct {
	maxTurns int

	mu    sync.Mutex
	users map[string]*userHistory
}

func NewMemoryConversationStore(maxTurns int) *MemoryConversationStore {
	if maxTurns <= 0 {
		maxTurns = model.DefaultMaxTurns
	}
	return &MemoryConversationStore{maxTurns: maxTurns, users: map[string]*userHistory{}}
}

func (s *MemoryConversationStore) user(userID string) *userHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.users[userID]
	if !ok {
		h = &userHistory{}
		s.users[userID] = h
	}
	return h
}

func (s *MemoryConversationStore) Append(ctx context.Context, userID string, turn model.Turn) error {
	if userID == "" {
		return ErrInvalidUser
	}
	if turn.ID == 0 {
		turn.ID = id.New()
	}

	h := s.user(userID)
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns, turn)
	if over := len(h.turns) - s.maxTurns; over > 0 {
		// copy so the evicted prefix does not pin the backing array forever
		h.turns = append([]model.Turn(nil), h.turns[over:]...)
	}
	return nil
}

func (s *MemoryConversationStore) History(ctx context.Context, userID string) ([]model.Turn, error) {
	if userID == "" {
		return nil, ErrInvalidUser
	}

	s.mu.Lock()
	h, ok := s.users[userID]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]model.Turn(nil), h.turns...), nil
}
