// Package jsonfile provides a repository.DocumentRepository backed by
// a single JSON file. Every mutation rewrites the file via a temp-file
// rename, so a crash never leaves a half-written database. Single
// process only: concurrent writers from separate processes would race
// on the file.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"docvault/internal/apperr"
	"docvault/internal/model"
	"docvault/internal/repository"
)

// DocumentJSONFile persists documents as a JSON array in one file.
type DocumentJSONFile struct {
	path string
	mu   sync.RWMutex
	docs map[string]*model.Document
}

// NewDocumentJSONFile loads (or initializes) the JSON database at path.
// Parent directories are created as needed.
func NewDocumentJSONFile(path string) (*DocumentJSONFile, error) {
	if path == "" {
		return nil, fmt.Errorf("jsonfile: path is required")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("jsonfile: resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("jsonfile: create directory: %w", err)
	}

	r := &DocumentJSONFile{path: abs, docs: make(map[string]*model.Document)}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

var _ repository.DocumentRepository = (*DocumentJSONFile)(nil)

func (r *DocumentJSONFile) load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("jsonfile: read database: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var docs []*model.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("jsonfile: parse database: %w", err)
	}
	for _, doc := range docs {
		r.docs[doc.ID] = doc
	}
	return nil
}

// flush rewrites the database file atomically. Callers must hold the
// write lock.
func (r *DocumentJSONFile) flush() error {
	docs := make([]*model.Document, 0, len(r.docs))
	for _, doc := range r.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonfile: encode database: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("jsonfile: write temp file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("jsonfile: rename temp file: %w", err)
	}
	return nil
}

// Create stores a copy of the document and flushes.
func (r *DocumentJSONFile) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
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

	if err := r.flush(); err != nil {
		delete(r.docs, stored.ID)
		return nil, err
	}
	return clone(stored), nil
}

// FindByID returns a non-deleted document by ID.
func (r *DocumentJSONFile) FindByID(ctx context.Context, id string) (*model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[id]
	if !ok || doc.Deleted() {
		return nil, apperr.NotFound("document", id)
	}
	return clone(doc), nil
}

// List returns a page of non-deleted documents, newest first.
func (r *DocumentJSONFile) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
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
func (r *DocumentJSONFile) ListAll(ctx context.Context) ([]model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	live := r.liveSorted()
	items := make([]model.Document, 0, len(live))
	for _, doc := range live {
		items = append(items, *clone(doc))
	}
	return items, nil
}

// Update merges the patch into an existing non-deleted document and flushes.
func (r *DocumentJSONFile) Update(ctx context.Context, id string, patch *model.DocumentPatch) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok || doc.Deleted() {
		return nil, apperr.NotFound("document", id)
	}

	prev := clone(doc)
	patch.Apply(doc, time.Now().UTC())

	if err := r.flush(); err != nil {
		r.docs[id] = prev
		return nil, err
	}
	return clone(doc), nil
}

// SoftDelete stamps DeletedAt and flushes.
func (r *DocumentJSONFile) SoftDelete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok || doc.Deleted() {
		return apperr.NotFound("document", id)
	}

	prev := clone(doc)
	now := time.Now().UTC()
	doc.DeletedAt = &now
	doc.UpdatedAt = now

	if err := r.flush(); err != nil {
		r.docs[id] = prev
		return err
	}
	return nil
}

// Clear removes all records and flushes an empty database.
func (r *DocumentJSONFile) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.docs = make(map[string]*model.Document)
	return r.flush()
}

func (r *DocumentJSONFile) liveSorted() []*model.Document {
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
