package store

import (
	"context"
	"errors"

	"toacrd.app/oracle/internal/model"
)

var ErrInvalidUser = errors.New("user id is required")

// ConversationStore keeps the bounded, per-user history of turns. A user's
// history is created on first append; after every append it holds at most
// the configured number of turns, oldest evicted first.
type ConversationStore interface {
	Append(ctx context.Context, userID string, turn model.Turn) error
	// History returns the turns oldest-first. Unknown users have none.
	History(ctx context.Context, userID string) ([]model.Turn, error)
}
