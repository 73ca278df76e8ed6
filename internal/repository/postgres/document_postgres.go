// Package postgres is the relational implementation of
// repository.DocumentRepository. It uses database/sql with
// parameterized queries and contains no business logic. Tags and
// metadata are stored as JSONB columns; soft deletion is a nullable
// deleted_at column that every read filters on.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"docvault/internal/apperr"
	"docvault/internal/model"
	"docvault/internal/repository"
)

const documentColumns = `id, title, description, tags, metadata, file_url, file_name, file_size, mime_type, extracted_text, embedding_id, status, created_at, updated_at, deleted_at`

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	tags, metadata, err := encodeJSONColumns(doc.Tags, doc.Metadata)
	if err != nil {
		return nil, err
	}

	q := `
		INSERT INTO documents (id, title, description, tags, metadata, file_url, file_name, file_size, mime_type, extracted_text, embedding_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + documentColumns

	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.Title,
		doc.Description,
		tags,
		metadata,
		doc.FileURL,
		doc.FileName,
		doc.FileSize,
		doc.MimeType,
		doc.ExtractedText,
		doc.EmbeddingID,
		string(doc.Status),
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single non-deleted document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	q := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE id = $1 AND deleted_at IS NULL
	`
	doc, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("document", id)
		}
		return nil, err
	}
	return doc, nil
}

// List returns non-deleted documents using LIMIT/OFFSET pagination and
// a total count of all non-deleted rows.
func (r *DocumentPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	const qCount = `SELECT COUNT(*) FROM documents WHERE deleted_at IS NULL`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	q := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, q, pq.Limit, pq.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := collectDocuments(rows)
	if err != nil {
		return nil, err
	}
	return &repository.PageResult[model.Document]{Items: items, Total: total}, nil
}

// ListAll returns every non-deleted document for reconciliation.
func (r *DocumentPostgres) ListAll(ctx context.Context) ([]model.Document, error) {
	q := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDocuments(rows)
}

// Update merges the provided patch fields in a single statement guarded
// by the soft-delete filter, so a concurrent delete cannot resurrect
// the row.
func (r *DocumentPostgres) Update(ctx context.Context, id string, patch *model.DocumentPatch) (*model.Document, error) {
	sets := []string{"updated_at = $1"}
	args := []any{time.Now().UTC()}

	if patch.HasTitle && patch.Title != nil {
		args = append(args, *patch.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if patch.HasDescription {
		args = append(args, patch.Description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}
	if patch.HasTags {
		tags := patch.Tags
		if tags == nil {
			tags = []string{}
		}
		encoded, err := json.Marshal(tags)
		if err != nil {
			return nil, fmt.Errorf("encode tags: %w", err)
		}
		args = append(args, encoded)
		sets = append(sets, fmt.Sprintf("tags = $%d", len(args)))
	}
	if patch.HasMetadata {
		metadata := patch.Metadata
		if metadata == nil {
			metadata = map[string]string{}
		}
		encoded, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		args = append(args, encoded)
		sets = append(sets, fmt.Sprintf("metadata = $%d", len(args)))
	}

	args = append(args, id)
	q := fmt.Sprintf(`
		UPDATE documents
		SET %s
		WHERE id = $%d AND deleted_at IS NULL
		RETURNING %s
	`, strings.Join(sets, ", "), len(args), documentColumns)

	doc, err := scanDocument(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("document", id)
		}
		return nil, err
	}
	return doc, nil
}

// SoftDelete stamps deleted_at on a non-deleted row.
func (r *DocumentPostgres) SoftDelete(ctx context.Context, id string) error {
	const q = `
		UPDATE documents
		SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, q, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("document", id)
	}
	return nil
}

// Clear removes all rows, soft-deleted included.
func (r *DocumentPostgres) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM documents`)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		d           model.Document
		description sql.NullString
		tags        []byte
		metadata    []byte
		extracted   sql.NullString
		embedding   sql.NullString
		status      string
		deletedAt   sql.NullTime
	)
	if err := row.Scan(
		&d.ID,
		&d.Title,
		&description,
		&tags,
		&metadata,
		&d.FileURL,
		&d.FileName,
		&d.FileSize,
		&d.MimeType,
		&extracted,
		&embedding,
		&status,
		&d.CreatedAt,
		&d.UpdatedAt,
		&deletedAt,
	); err != nil {
		return nil, err
	}

	if description.Valid {
		d.Description = &description.String
	}
	if extracted.Valid {
		d.ExtractedText = &extracted.String
	}
	if embedding.Valid {
		d.EmbeddingID = &embedding.String
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		d.DeletedAt = &t
	}
	d.Status = model.DocumentStatus(status)

	d.Tags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &d.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	d.Metadata = map[string]string{}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &d.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &d, nil
}

func collectDocuments(rows *sql.Rows) ([]model.Document, error) {
	items := make([]model.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func encodeJSONColumns(tags []string, metadata map[string]string) ([]byte, []byte, error) {
	if tags == nil {
		tags = []string{}
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	encodedTags, err := json.Marshal(tags)
	if err != nil {
		return nil, nil, fmt.Errorf("encode tags: %w", err)
	}
	encodedMetadata, err := json.Marshal(metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("encode metadata: %w", err)
	}
	return encodedTags, encodedMetadata, nil
}
