package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/core"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for all conversation store operations.
//
//go:generate mockgen -destination=../../mocks/mock_store.go -package=mocks . Store
type Store interface {
	// CreateSession inserts a new session. The id must be unused.
	CreateSession(ctx context.Context, session *core.Session) error
	// TouchSession creates the session on first use and bumps its last-active
	// time. It fails with core.ErrSessionOwnership when the session belongs to
	// another user.
	TouchSession(ctx context.Context, sessionID, userID string, at time.Time) (*core.Session, error)
	GetSession(ctx context.Context, sessionID string) (*core.Session, error)

	// AppendMessages stores all messages in a single transaction.
	AppendMessages(ctx context.Context, msgs []*core.Message) error
	// LoadRecentMessages returns up to limit of the session's most recent
	// messages, oldest first.
	LoadRecentMessages(ctx context.Context, sessionID string, limit int) ([]core.Message, error)
	// ListMessages pages backwards through a transcript. Only messages with an
	// id below beforeID are returned when beforeID is positive. Results are
	// oldest first.
	ListMessages(ctx context.Context, sessionID string, limit int, beforeID int64) ([]core.Message, error)

	// SaveReview stores a review and its suggestions in a single transaction.
	SaveReview(ctx context.Context, review *core.Review) error
	GetReview(ctx context.Context, reviewID int64) (*core.Review, error)
	GetLatestReview(ctx context.Context, sessionID string) (*core.Review, error)
}

type sqlStore struct {
	db *sqlx.DB
}

// NewStore creates a new Store backed by an sqlx pool. Queries are written with
// '?' placeholders and rebound for the pool's driver.
func NewStore(db *sqlx.DB) Store {
	return &sqlStore{db: db}
}

func (s *sqlStore) CreateSession(ctx context.Context, session *core.Session) error {
	query := s.db.Rebind(`INSERT INTO sessions (id, user_id, created_at, last_active_at) VALUES (?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, session.ID, session.UserID, session.CreatedAt, session.LastActiveAt); err != nil {
		return fmt.Errorf("%w: create session %s: %w", core.ErrStorageWrite, session.ID, err)
	}
	return nil
}

func (s *sqlStore) TouchSession(ctx context.Context, sessionID, userID string, at time.Time) (*core.Session, error) {
	var session core.Session
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		insert := tx.Rebind(`
			INSERT INTO sessions (id, user_id, created_at, last_active_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING`)
		if _, err := tx.ExecContext(ctx, insert, sessionID, userID, at, at); err != nil {
			return fmt.Errorf("%w: insert session: %w", core.ErrStorageWrite, err)
		}

		update := tx.Rebind(`UPDATE sessions SET last_active_at = ? WHERE id = ? AND user_id = ?`)
		res, err := tx.ExecContext(ctx, update, at, sessionID, userID)
		if err != nil {
			return fmt.Errorf("%w: touch session: %w", core.ErrStorageWrite, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return core.ErrSessionOwnership
		}

		query := tx.Rebind(`SELECT id, user_id, created_at, last_active_at FROM sessions WHERE id = ?`)
		return tx.GetContext(ctx, &session, query, sessionID)
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *sqlStore) GetSession(ctx context.Context, sessionID string) (*core.Session, error) {
	var session core.Session
	query := s.db.Rebind(`SELECT id, user_id, created_at, last_active_at FROM sessions WHERE id = ?`)
	if err := s.db.GetContext(ctx, &session, query, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
		}
		return nil, err
	}
	return &session, nil
}

func (s *sqlStore) AppendMessages(ctx context.Context, msgs []*core.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`
			INSERT INTO messages (id, session_id, role, content, code, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`)
		for _, m := range msgs {
			if _, err := tx.ExecContext(ctx, query, m.ID, m.SessionID, string(m.Role), m.Content, nullString(m.Code), m.CreatedAt); err != nil {
				return fmt.Errorf("%w: append message %d: %w", core.ErrStorageWrite, m.ID, err)
			}
		}
		return nil
	})
}

func (s *sqlStore) LoadRecentMessages(ctx context.Context, sessionID string, limit int) ([]core.Message, error) {
	return s.ListMessages(ctx, sessionID, limit, 0)
}

func (s *sqlStore) ListMessages(ctx context.Context, sessionID string, limit int, beforeID int64) ([]core.Message, error) {
	if limit <= 0 {
		return []core.Message{}, nil
	}

	query := `SELECT id, session_id, role, content, code, created_at FROM messages WHERE session_id = ?`
	args := []any{sessionID}
	if beforeID > 0 {
		query += ` AND id < ?`
		args = append(args, beforeID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	msgs := []core.Message{}
	if err := s.db.SelectContext(ctx, &msgs, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load messages for session %s: %w", sessionID, err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *sqlStore) SaveReview(ctx context.Context, review *core.Review) error {
	if review.ID == 0 {
		return fmt.Errorf("%w: review id must be assigned before saving", core.ErrStorageWrite)
	}
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		insertReview := tx.Rebind(`
			INSERT INTO reviews (id, session_id, language, code_hash, summary, confidence, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if _, err := tx.ExecContext(ctx, insertReview,
			review.ID, review.SessionID, review.Language, review.CodeHash,
			review.Summary, review.Confidence, review.CreatedAt,
		); err != nil {
			return fmt.Errorf("%w: insert review %d: %w", core.ErrStorageWrite, review.ID, err)
		}

		insertSuggestion := tx.Rebind(`
			INSERT INTO suggestions (id, review_id, type, severity, line_number, column_number, message, fix, explanation)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		for i := range review.Suggestions {
			sg := &review.Suggestions[i]
			sg.ReviewID = review.ID
			if _, err := tx.ExecContext(ctx, insertSuggestion,
				sg.ID, sg.ReviewID, string(sg.Type), string(sg.Severity), nullInt(sg.Line), nullInt(sg.Column),
				sg.Message, sg.Fix, sg.Explanation,
			); err != nil {
				return fmt.Errorf("%w: insert suggestion %d: %w", core.ErrStorageWrite, sg.ID, err)
			}
		}
		return nil
	})
}

func (s *sqlStore) GetReview(ctx context.Context, reviewID int64) (*core.Review, error) {
	query := s.db.Rebind(`
		SELECT id, session_id, language, code_hash, summary, confidence, created_at
		FROM reviews WHERE id = ?`)
	return s.loadReview(ctx, query, reviewID)
}

func (s *sqlStore) GetLatestReview(ctx context.Context, sessionID string) (*core.Review, error) {
	query := s.db.Rebind(`
		SELECT id, session_id, language, code_hash, summary, confidence, created_at
		FROM reviews WHERE session_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`)
	return s.loadReview(ctx, query, sessionID)
}

func (s *sqlStore) loadReview(ctx context.Context, query string, arg any) (*core.Review, error) {
	var review core.Review
	if err := s.db.GetContext(ctx, &review, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("review %v: %w", arg, ErrNotFound)
		}
		return nil, err
	}

	review.Suggestions = []core.Suggestion{}
	suggestions := s.db.Rebind(`
		SELECT id, review_id, type, severity, line_number, column_number, message, fix, explanation
		FROM suggestions WHERE review_id = ?
		ORDER BY id`)
	if err := s.db.SelectContext(ctx, &review.Suggestions, suggestions, review.ID); err != nil {
		return nil, fmt.Errorf("failed to load suggestions for review %d: %w", review.ID, err)
	}
	return &review, nil
}

// withTx runs fn inside a transaction, rolling back when fn fails.
func (s *sqlStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", core.ErrStorageWrite, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", core.ErrStorageWrite, err)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
