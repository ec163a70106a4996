// Package models defines core data structures for documents, tool calls, and
// investigation sessions.
package models

import "time"

// Document is a corpus document. Documents are immutable once ingested; the
// investigation core only ever reads them.
type Document struct {
	// ID is the Bates number for production documents, or a stable hash-based
	// identifier for files without one.
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Content   string    `json:"content" db:"content"`
	Pages     int       `json:"pages" db:"pages"`
	Size      int64     `json:"size" db:"size"`
	Kind      string    `json:"kind" db:"kind"`
	ModTime   time.Time `json:"mod_time" db:"mod_time"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
