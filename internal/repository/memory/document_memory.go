// Package memory provides a volatile in-process implementation of
// repository.DocumentRepository. Intended for tests and local runs
// without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"docvault/internal/apperr"
	"docvault/internal/model"
	"docvault/internal/repository"
)

// DocumentMemory stores documents in a mutex-guarded map.
type DocumentMemory struct {
	mu   sync.RWMutex
	docs map[string]*model.Document
}

// NewDocumentMemory creates an empty in-memory repository.
func NewDocumentMemory() *DocumentMemory {
	return &DocumentMemory{docs: make(map[string]*model.Document)}
}

var _ repository.DocumentRepository = (*DocumentMemory)(nil)

// Create stores a copy of the document.
func (r *DocumentMemory) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := clone(doc)
	if stored.Tags == nil {
		stored.Tags = []string{}
	}
	if stored.Metadata == nil {
		stored.Metadata = map[string]string{}
	}
	r.docs[stored.ID] = stored
	return clone(stored), nil
}

// FindByID returns a non-deleted document by ID.
func (r *DocumentMemory) FindByID(ctx context.Context, id string) (*model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[id]
	if !ok || doc.Deleted() {
		return nil, apperr.NotFound("document", id)
	}
	return clone(doc), nil
}

// List returns a page of non-deleted documents, newest first.
func (r *DocumentMemory) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	live := r.liveSorted()
	total := len(live)

	start := pq.Offset()
	if start > total {
		start = total
	}
	end := start + pq.Limit
	if end > total {
		end = total
	}

	items := make([]model.Document, 0, end-start)
	for _, doc := range live[start:end] {
		items = append(items, *clone(doc))
	}

	return &repository.PageResult[model.Document]{Items: items, Total: total}, nil
}

// ListAll returns every non-deleted document, newest first.
func (r *DocumentMemory) ListAll(ctx context.Context) ([]model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	live := r.liveSorted()
	items := make([]model.Document, 0, len(live))
	for _, doc := range live {
		items = append(items, *clone(doc))
	}
	return items, nil
}

// Update merges the patch into an existing non-deleted document.
func (r *DocumentMemory) Update(ctx context.Context, id string, patch *model.DocumentPatch) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok || doc.Deleted() {
		return nil, apperr.NotFound("document", id)
	}
	patch.Apply(doc, time.Now().UTC())
	return clone(doc), nil
}

// SoftDelete stamps DeletedAt on an existing non-deleted document.
func (r *DocumentMemory) SoftDelete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok || doc.Deleted() {
		return apperr.NotFound("document", id)
	}
	now := time.Now().UTC()
	doc.DeletedAt = &now
	doc.UpdatedAt = now
	return nil
}

// Clear removes all records, soft-deleted included.
func (r *DocumentMemory) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.docs = make(map[string]*model.Document)
	return nil
}

// liveSorted returns non-deleted documents ordered by CreatedAt
// descending with ID descending as tiebreak. Callers must hold the lock.
func (r *DocumentMemory) liveSorted() []*model.Document {
	live := make([]*model.Document, 0, len(r.docs))
	for _, doc := range r.docs {
		if !doc.Deleted() {
			live = append(live, doc)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		if !live[i].CreatedAt.Equal(live[j].CreatedAt) {
			return live[i].CreatedAt.After(live[j].CreatedAt)
		}
		return live[i].ID > live[j].ID
	})
	return live
}

func clone(doc *model.Document) *model.Document {
	out := *doc
	if doc.Tags != nil {
		out.Tags = append([]string(nil), doc.Tags...)
	}
	if doc.Metadata != nil {
		out.Metadata = make(map[string]string, len(doc.Metadata))
		for k, v := range doc.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
