package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentPatchUnmarshal(t *testing.T) {
	t.Run("absent fields are not flagged", func(t *testing.T) {
		var p DocumentPatch
		require.NoError(t, json.Unmarshal([]byte(`{"title":"New"}`), &p))

		assert.True(t, p.HasTitle)
		require.NotNil(t, p.Title)
		assert.Equal(t, "New", *p.Title)

		assert.False(t, p.HasDescription)
		assert.False(t, p.HasTags)
		assert.False(t, p.HasMetadata)
	})

	t.Run("explicit null is flagged with nil value", func(t *testing.T) {
		var p DocumentPatch
		require.NoError(t, json.Unmarshal([]byte(`{"description":null}`), &p))

		assert.True(t, p.HasDescription)
		assert.Nil(t, p.Description)
	})

	t.Run("empty object is empty patch", func(t *testing.T) {
		var p DocumentPatch
		require.NoError(t, json.Unmarshal([]byte(`{}`), &p))
		assert.True(t, p.Empty())
	})

	t.Run("wrong field type fails", func(t *testing.T) {
		var p DocumentPatch
		assert.Error(t, json.Unmarshal([]byte(`{"tags":"not-a-list"}`), &p))
	})
}

func TestDocumentPatchApply(t *testing.T) {
	desc := "old"
	doc := &Document{
		Title:       "Old",
		Description: &desc,
		Tags:        []string{"a"},
		UpdatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	t.Run("merges only provided fields", func(t *testing.T) {
		var p DocumentPatch
		require.NoError(t, json.Unmarshal([]byte(`{"tags":["x","x"]}`), &p))

		p.Apply(doc, now)

		assert.Equal(t, "Old", doc.Title)
		assert.Equal(t, []string{"x", "x"}, doc.Tags, "duplicates are preserved")
		assert.Equal(t, now, doc.UpdatedAt)
	})

	t.Run("explicit null clears description", func(t *testing.T) {
		var p DocumentPatch
		require.NoError(t, json.Unmarshal([]byte(`{"description":null}`), &p))

		p.Apply(doc, now)
		assert.Nil(t, doc.Description)
	})
}

func TestDocumentStatusValid(t *testing.T) {
	assert.True(t, StatusProcessing.Valid())
	assert.True(t, StatusReady.Valid())
	assert.True(t, StatusError.Valid())
	assert.False(t, DocumentStatus("archived").Valid())
}
