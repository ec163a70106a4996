// Package storage defines the persistence interface for corpus documents.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/casefile/inquest/internal/models"
)

// ErrNotFound is returned when an identifier resolves to nothing.
var ErrNotFound = errors.New("not found")

// SessionSummary is the listing view of a persisted session artifact.
type SessionSummary struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Partial   bool      `json:"partial"`
	Citations int       `json:"citations"`
	CreatedAt time.Time `json:"created_at"`
}

// Storage defines document persistence operations. Documents are keyed by
// their Bates number (or hash fallback identifier) and replaced wholesale on
// re-ingestion. Finished investigation sessions are persisted alongside the
// documents as immutable artifacts.
type Storage interface {
	PutDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetDocuments(ctx context.Context, ids []string) (map[string]*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)
	ListNames(ctx context.Context, offset, limit int) ([]string, error)

	CountDocuments(ctx context.Context) (int64, error)

	SaveSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListSessions(ctx context.Context, limit int) ([]*SessionSummary, error)

	Close() error
}
