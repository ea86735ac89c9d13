package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"toacrd.app/oracle/common/id"
	"toacrd.app/oracle/internal/model"
)

// DBTX is the part of pgxpool.Pool the archive needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ArchivedStore copies every appended turn into the conversation_turns table.
// The bounded history stays in the wrapped store; the archive is unbounded
// and only read for inspection.
type ArchivedStore struct {
	ConversationStore
	db     DBTX
	logger *slog.Logger
}

func NewArchivedStore(inner ConversationStore, db DBTX, logger *slog.Logger) *ArchivedStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchivedStore{ConversationStore: inner, db: db, logger: logger}
}

const insertTurnSQL = `INSERT INTO conversation_turns (id, user_id, role, content, model, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING`

// Append stores the turn in the bounded history first. An archive failure is
// logged and does not fail the append.
func (s *ArchivedStore) Append(ctx context.Context, userID string, turn model.Turn) error {
	if turn.ID == 0 {
		turn.ID = id.New()
	}
	if err := s.ConversationStore.Append(ctx, userID, turn); err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx, insertTurnSQL,
		turn.ID, userID, string(turn.Role), turn.Content, turn.Model, turn.CreatedAt); err != nil {
		s.logger.WarnContext(ctx, "failed to archive turn", "user_id", userID, "turn_id", turn.ID, "error", err)
	}
	return nil
}

const listTurnsSQL = `SELECT id, role, content, model, created_at
FROM conversation_turns
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`

// Archived returns up to limit of the user's most recent archived turns, oldest-first.
func (s *ArchivedStore) Archived(ctx context.Context, userID string, limit int) ([]model.Turn, error) {
	if userID == "" {
		return nil, ErrInvalidUser
	}

	rows, err := s.db.Query(ctx, listTurnsSQL, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query archived turns: %w", err)
	}
	turns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Turn, error) {
		var (
			t    model.Turn
			role string
		)
		err := row.Scan(&t.ID, &role, &t.Content, &t.Model, &t.CreatedAt)
		t.Role = model.Role(role)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan archived turns: %w", err)
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}
