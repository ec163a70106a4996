// Package ledger records which documents were retrieved in full during a
// session. The ledger is the ground truth for verification: a citation can
// only verify against text that passed through it.
package ledger

import (
	"sync"
	"time"
)

// Entry is one fully-read document. Entries are immutable once written.
type Entry struct {
	DocID     string
	Text      string
	Truncated bool
	FirstRead time.Time
}

// Ledger is an append-only record of full-document reads. First write wins:
// re-reading a document never replaces the text the verifier will check
// against. Safe for concurrent use.
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string
}

// New returns an empty Ledger.
func New() *Ledger {
	return &Ledger{entries: make(map[string]*Entry)}
}

// Record adds an entry for docID unless one already exists. It reports
// whether the entry was newly written.
func (l *Ledger) Record(docID, text string, truncated bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[docID]; ok {
		return false
	}
	l.entries[docID] = &Entry{
		DocID:     docID,
		Text:      text,
		Truncated: truncated,
		FirstRead: time.Now(),
	}
	l.order = append(l.order, docID)
	return true
}

// Get returns the entry for docID, if any.
func (l *Ledger) Get(docID string) (*Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[docID]
	return e, ok
}

// Has reports whether docID was read in full.
func (l *Ledger) Has(docID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[docID]
	return ok
}

// IDs returns the ledgered document IDs in first-read order.
func (l *Ledger) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Len returns the number of ledgered documents.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}
