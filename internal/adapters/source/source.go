// Package source reads forum posts from the host's document storage.
package source

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/okian/eventdex/internal/domain/model"
)

// ErrNotFound means the host has no document with the requested id.
var ErrNotFound = errors.New("document not found")

// DocumentSource is read-only access to host documents.
type DocumentSource interface {
	// Document returns the post with id or ErrNotFound.
	Document(ctx context.Context, id int64) (model.SourceDocument, error)
	// Candidates lists up to limit post ids eligible for a bulk reindex,
	// in ascending order. limit <= 0 means no cap.
	Candidates(ctx context.Context, limit int) ([]int64, error)
}

// MemorySource is a DocumentSource over a map, for tests and embedding.
type MemorySource struct {
	mu   sync.RWMutex
	docs map[int64]model.SourceDocument
}

// NewMemorySource returns a source holding docs.
func NewMemorySource(docs ...model.SourceDocument) *MemorySource {
	m := &MemorySource{docs: make(map[int64]model.SourceDocument, len(docs))}
	for _, d := range docs {
		m.docs[d.ID] = d
	}
	return m
}

// Put inserts or replaces a document.
func (m *MemorySource) Put(doc model.SourceDocument) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
}

// Remove drops a document entirely, as a hard delete on the host would.
func (m *MemorySource) Remove(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
}

func (m *MemorySource) Document(ctx context.Context, id int64) (model.SourceDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[id]
	if !ok {
		return model.SourceDocument{}, ErrNotFound
	}
	return d, nil
}

func (m *MemorySource) Candidates(ctx context.Context, limit int) ([]int64, error) {
	m.mu.RLock()
	ids := make([]int64, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	return capIDs(ids, limit), nil
}

func capIDs(ids []int64, limit int) []int64 {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}
