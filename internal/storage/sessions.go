package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/casefile/inquest/internal/models"
)

// SaveSession persists a finished session as an immutable artifact. The full
// session (transcript, citations, compliance verdict) is stored as JSON; the
// question and citation count are lifted out for listing.
func (s *SQLiteStorage) SaveSession(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (id, question, partial, citations, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, session.Question, session.Partial, len(session.Citations), string(payload), time.Now(),
	)
	return err
}

// GetSession returns a persisted session by ID. Returns ErrNotFound when the
// identifier resolves to nothing.
func (s *SQLiteStorage) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM sessions WHERE id = ?`, id,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var session models.Session
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &session, nil
}

// ListSessions returns summaries of the most recent sessions, newest first.
func (s *SQLiteStorage) ListSessions(ctx context.Context, limit int) ([]*SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, partial, citations, created_at
		 FROM sessions ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*SessionSummary
	for rows.Next() {
		var sum SessionSummary
		if err := rows.Scan(&sum.ID, &sum.Question, &sum.Partial, &sum.Citations, &sum.CreatedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, &sum)
	}
	return summaries, rows.Err()
}
