// Package repository contains the data access contract for document
// metadata. Implementations live in subpackages (memory, jsonfile,
// postgres) and must all satisfy the same semantics; the shared
// conformance suite in repotest exercises them uniformly.
package repository

import (
	"context"

	"docvault/internal/model"
)

// DocumentRepository defines persistence for document metadata.
// No business logic here — strictly storage operations.
//
// Delete semantics are uniform across backends: SoftDelete stamps
// DeletedAt and every read operation filters soft-deleted records out.
type DocumentRepository interface {
	// Create persists a new record verbatim. The caller assigns ID,
	// timestamps, and status. Nil Tags/Metadata are stored as empty.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by ID.
	// Fails with apperr.NotFound if absent or soft-deleted.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// List returns a page of non-deleted documents ordered by CreatedAt
	// descending (ID descending as tiebreak) plus the total non-deleted
	// count. A page beyond the available data yields empty items with a
	// correct total.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Document], error)

	// ListAll returns every non-deleted document. It exists for the
	// sync reconciliation path and is deliberately separate from the
	// paginated public listing.
	ListAll(ctx context.Context) ([]model.Document, error)

	// Update merges the fields present in the patch and refreshes
	// UpdatedAt. Fails with apperr.NotFound if absent or soft-deleted.
	Update(ctx context.Context, id string, patch *model.DocumentPatch) (*model.Document, error)

	// SoftDelete stamps DeletedAt. Fails with apperr.NotFound if absent
	// or already deleted.
	SoftDelete(ctx context.Context, id string) error

	// Clear removes all records unconditionally, soft-deleted included.
	// Test/reset use only; never exposed over HTTP.
	Clear(ctx context.Context) error
}

// PageQuery holds 1-indexed page/limit pagination parameters.
// Bounds checking happens at the HTTP layer; repositories assume
// sane values.
type PageQuery struct {
	Page  int
	Limit int
}

// Offset converts the page/limit pair to a record offset.
func (pq PageQuery) Offset() int {
	return (pq.Page - 1) * pq.Limit
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}
