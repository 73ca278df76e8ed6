package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"

	"docvault/internal/apperr"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

// UploadInput carries a file and its user-supplied metadata.
type UploadInput struct {
	Data        []byte
	FileName    string
	MimeType    string
	Title       string
	Description *string
	Tags        []string
	Metadata    map[string]string
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items      []model.Document `json:"items"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"totalPages"`
}

// ContentResult is the document content prepared for preview.
type ContentResult struct {
	Content  []byte
	FileName string
	MimeType string
	Rendered bool
}

// SyncResult reports the outcome of a reconciliation run.
type SyncResult struct {
	Added       int      `json:"added"`
	Removed     int      `json:"removed"`
	Directories []string `json:"directories"`
}

// DocumentService defines the use cases for handling documents.
type DocumentService interface {
	// Upload stores the file bytes, creates the metadata record, and
	// rolls back the stored object if record creation fails.
	Upload(ctx context.Context, in UploadInput) (*model.Document, error)

	// List returns a page of documents with pagination metadata.
	List(ctx context.Context, page, limit int) (*DocumentListResult, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// Content returns the raw file content for preview. When renderHTML
	// is set and the document is markdown, the content is converted to
	// HTML.
	Content(ctx context.Context, id string, renderHTML bool) (*ContentResult, error)

	// DownloadURL returns a client-fetchable URL for the document's file.
	DownloadURL(ctx context.Context, id string, expiry time.Duration) (string, error)

	// Update applies a partial metadata update.
	Update(ctx context.Context, id string, patch *model.DocumentPatch) (*model.Document, error)

	// Delete soft-deletes the metadata record. The stored object is
	// kept: it remains the source of truth for reconciliation.
	Delete(ctx context.Context, id string) error

	// Sync reconciles metadata records with the files present under the
	// given directories (default: the configured storage root). Files
	// without a record are added; records whose file vanished are
	// soft-deleted. Idempotent: re-running with no filesystem changes
	// yields zero added and removed.
	Sync(ctx context.Context, directories []string) (*SyncResult, error)
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store         storage.Adapter
	repo          repository.DocumentRepository
	defaultRoot   string
	maxUploadSize int64
	markdown      goldmark.Markdown
}

// NewDocumentService constructs a new DocumentService. defaultRoot is
// the directory Sync falls back to; maxUploadSize bounds uploads in
// bytes (0 disables the check).
func NewDocumentService(store storage.Adapter, repo repository.DocumentRepository, defaultRoot string, maxUploadSize int64) DocumentService {
	return &documentService{
		store:         store,
		repo:          repo,
		defaultRoot:   defaultRoot,
		maxUploadSize: maxUploadSize,
		markdown:      goldmark.New(),
	}
}

func (s *documentService) Upload(ctx context.Context, in UploadInput) (*model.Document, error) {
	if len(in.Data) == 0 {
		return nil, apperr.Validation("file is required")
	}
	if in.FileName == "" {
		return nil, apperr.Validation("file name is required")
	}
	if s.maxUploadSize > 0 && int64(len(in.Data)) > s.maxUploadSize {
		return nil, apperr.Validation(fmt.Sprintf("file exceeds maximum size of %d bytes", s.maxUploadSize))
	}

	mimeType := in.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	res, err := s.store.Upload(ctx, in.FileName, mimeType, in.Data, in.Metadata)
	if err != nil {
		return nil, apperr.Internal("failed to store file").WithCause(err)
	}

	title := in.Title
	if title == "" {
		title = in.FileName
	}

	now := time.Now().UTC()
	doc := &model.Document{
		ID:          uuid.NewString(),
		Title:       title,
		Description: in.Description,
		Tags:        in.Tags,
		Metadata:    in.Metadata,
		FileURL:     res.URL,
		FileName:    in.FileName,
		FileSize:    res.Size,
		MimeType:    mimeType,
		Status:      model.StatusProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		// Rollback: remove the orphaned object from storage.
		if delErr := s.store.Delete(ctx, res.URL); delErr != nil {
			return nil, apperr.Internal("failed to save document").
				WithCause(fmt.Errorf("create failed: %v; rollback delete failed: %w", err, delErr))
		}
		return nil, apperr.Internal("failed to save document").WithCause(err)
	}
	return stored, nil
}

func (s *documentService) List(ctx context.Context, page, limit int) (*DocumentListResult, error) {
	res, err := s.repo.List(ctx, repository.PageQuery{Page: page, Limit: limit})
	if err != nil {
		return nil, err
	}

	totalPages := res.Total / limit
	if res.Total%limit != 0 {
		totalPages++
	}

	return &DocumentListResult{
		Items:      res.Items,
		Total:      res.Total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, apperr.Validation("id is required")
	}
	return s.repo.FindByID(ctx, id)
}

func (s *documentService) Content(ctx context.Context, id string, renderHTML bool) (*ContentResult, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := s.store.Download(ctx, doc.FileURL)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return nil, apperr.NotFound("file", doc.FileURL)
		}
		return nil, apperr.Internal("failed to read file content").WithCause(err)
	}

	if renderHTML && isMarkdown(doc) {
		var buf bytes.Buffer
		if err := s.markdown.Convert(data, &buf); err != nil {
			return nil, apperr.Internal("failed to render markdown").WithCause(err)
		}
		return &ContentResult{Content: buf.Bytes(), FileName: doc.FileName, MimeType: "text/html; charset=utf-8", Rendered: true}, nil
	}

	return &ContentResult{Content: data, FileName: doc.FileName, MimeType: doc.MimeType}, nil
}

func (s *documentService) DownloadURL(ctx context.Context, id string, expiry time.Duration) (string, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	u, err := s.store.DownloadURL(ctx, doc.FileURL, expiry)
	if err != nil {
		// Files registered from outside the serving root have no static
		// route; the sentinel passes through so the handler can stream
		// the content instead.
		if errors.Is(err, storage.ErrNoStaticRoute) {
			return "", err
		}
		return "", apperr.Internal("failed to build download url").WithCause(err)
	}
	return u, nil
}

func (s *documentService) Update(ctx context.Context, id string, patch *model.DocumentPatch) (*model.Document, error) {
	if id == "" {
		return nil, apperr.Validation("id is required")
	}
	if patch == nil || patch.Empty() {
		return nil, apperr.Validation("no fields to update")
	}
	if patch.HasTitle && (patch.Title == nil || *patch.Title == "") {
		return nil, apperr.Validation("title cannot be empty")
	}
	return s.repo.Update(ctx, id, patch)
}

func (s *documentService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperr.Validation("id is required")
	}
	return s.repo.SoftDelete(ctx, id)
}

// Sync is a set reconciliation keyed on FileURL. There is no
// transactional guarantee across the add and remove phases: a crash
// mid-run leaves partial state, and a retry converges because both
// phases compare set membership only.
func (s *documentService) Sync(ctx context.Context, directories []string) (*SyncResult, error) {
	resolved, err := storage.NormalizeDirectories(directories, s.defaultRoot)
	if err != nil {
		return nil, apperr.Validation("invalid sync directories").WithCause(err)
	}

	files, err := s.store.Scan(ctx, resolved)
	if err != nil {
		if errors.Is(err, storage.ErrScanUnsupported) {
			return nil, apperr.Validation("sync is not supported by the configured storage backend")
		}
		if errors.Is(err, storage.ErrDirectoryNotFound) {
			return nil, apperr.Validation(err.Error())
		}
		return nil, apperr.Internal("failed to scan storage").WithCause(err)
	}

	records, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(records))
	for _, rec := range records {
		known[rec.FileURL] = struct{}{}
	}
	present := make(map[string]struct{}, len(files))
	for _, f := range files {
		present[f.FilePath] = struct{}{}
	}

	result := &SyncResult{Directories: resolved}

	for _, f := range files {
		if _, ok := known[f.FilePath]; ok {
			continue
		}
		now := time.Now().UTC()
		doc := &model.Document{
			ID:        uuid.NewString(),
			Title:     f.FileName,
			Tags:      []string{},
			Metadata:  map[string]string{},
			FileURL:   f.FilePath,
			FileName:  f.FileName,
			FileSize:  f.FileSize,
			MimeType:  f.MimeType,
			Status:    model.StatusProcessing,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := s.repo.Create(ctx, doc); err != nil {
			return nil, apperr.Internal("failed to register file during sync").WithCause(err)
		}
		result.Added++
	}

	for _, rec := range records {
		if _, ok := present[rec.FileURL]; ok {
			continue
		}
		if err := s.repo.SoftDelete(ctx, rec.ID); err != nil {
			// A concurrent delete is not a failure for reconciliation.
			if apperr.IsNotFound(err) {
				continue
			}
			return nil, apperr.Internal("failed to remove stale record during sync").WithCause(err)
		}
		result.Removed++
	}

	return result, nil
}

func isMarkdown(doc *model.Document) bool {
	if strings.HasPrefix(doc.MimeType, "text/markdown") {
		return true
	}
	switch strings.ToLower(filepath.Ext(doc.FileName)) {
	case ".md", ".markdown":
		return true
	}
	return false
}
