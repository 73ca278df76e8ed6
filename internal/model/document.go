package model

import (
	"encoding/json"
	"time"
)

// DocumentStatus tracks the processing state of a document.
// New documents start as StatusProcessing; the transition to
// StatusReady is owned by the (future) extraction pipeline.
type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusError      DocumentStatus = "error"
)

// Valid reports whether s is one of the known status values.
func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusProcessing, StatusReady, StatusError:
		return true
	}
	return false
}

// Document represents a stored file and its metadata.
// This is a pure domain model with no database-specific dependencies or tags.
// FileURL is the storage-adapter locator and the sole correlation key
// between metadata records and storage objects.
type Document struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Description   *string           `json:"description"`
	Tags          []string          `json:"tags"`
	Metadata      map[string]string `json:"metadata"`
	FileURL       string            `json:"fileUrl"`
	FileName      string            `json:"fileName"`
	FileSize      int64             `json:"fileSize"`
	MimeType      string            `json:"mimeType"`
	ExtractedText *string           `json:"extractedText"`
	EmbeddingID   *string           `json:"embeddingId"`
	Status        DocumentStatus    `json:"status"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
	DeletedAt     *time.Time        `json:"deletedAt,omitempty"`
}

// Deleted reports whether the document has been soft-deleted.
func (d *Document) Deleted() bool {
	return d.DeletedAt != nil
}

// DocumentPatch is a partial update of a document's mutable metadata.
// Fields absent from the JSON payload are left untouched; this is
// distinct from a field explicitly set to null, which clears nullable
// fields such as Description. The distinction is captured during
// unmarshalling via the Has* flags.
type DocumentPatch struct {
	Title       *string
	Description *string
	Tags        []string
	Metadata    map[string]string

	HasTitle       bool
	HasDescription bool
	HasTags        bool
	HasMetadata    bool
}

// UnmarshalJSON records which keys were present in the payload so the
// repositories can merge only the provided fields.
func (p *DocumentPatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["title"]; ok {
		p.HasTitle = true
		if err := json.Unmarshal(v, &p.Title); err != nil {
			return err
		}
	}
	if v, ok := raw["description"]; ok {
		p.HasDescription = true
		if err := json.Unmarshal(v, &p.Description); err != nil {
			return err
		}
	}
	if v, ok := raw["tags"]; ok {
		p.HasTags = true
		if err := json.Unmarshal(v, &p.Tags); err != nil {
			return err
		}
	}
	if v, ok := raw["metadata"]; ok {
		p.HasMetadata = true
		if err := json.Unmarshal(v, &p.Metadata); err != nil {
			return err
		}
	}
	return nil
}

// Empty reports whether the patch carries no fields at all.
func (p *DocumentPatch) Empty() bool {
	return !p.HasTitle && !p.HasDescription && !p.HasTags && !p.HasMetadata
}

// Apply merges the patch into doc and refreshes UpdatedAt.
// Tags are stored in the given order; duplicates are preserved.
func (p *DocumentPatch) Apply(doc *Document, now time.Time) {
	if p.HasTitle && p.Title != nil {
		doc.Title = *p.Title
	}
	if p.HasDescription {
		doc.Description = p.Description
	}
	if p.HasTags {
		doc.Tags = p.Tags
	}
	if p.HasMetadata {
		doc.Metadata = p.Metadata
	}
	doc.UpdatedAt = now
}
