package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/repository/repotest"
)

func TestDocumentJSONFile_Conformance(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repository.DocumentRepository {
		repo, err := NewDocumentJSONFile(filepath.Join(t.TempDir(), "documents.json"))
		require.NoError(t, err)
		return repo
	})
}

func TestDocumentJSONFile_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "documents.json")

	repo, err := NewDocumentJSONFile(path)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	doc := &model.Document{
		ID:        uuid.NewString(),
		Title:     "survives restart",
		Tags:      []string{"a"},
		Metadata:  map[string]string{"k": "v"},
		FileURL:   "/data/uploads/2024/01/15/x.txt",
		FileName:  "x.txt",
		FileSize:  3,
		MimeType:  "text/plain",
		Status:    model.StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = repo.Create(ctx, doc)
	require.NoError(t, err)

	reopened, err := NewDocumentJSONFile(path)
	require.NoError(t, err)

	found, err := reopened.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "survives restart", found.Title)
	assert.Equal(t, []string{"a"}, found.Tags)
	assert.Equal(t, map[string]string{"k": "v"}, found.Metadata)
	assert.True(t, found.CreatedAt.Equal(now))
}

func TestDocumentJSONFile_SoftDeletePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "documents.json")

	repo, err := NewDocumentJSONFile(path)
	require.NoError(t, err)

	now := time.Now().UTC()
	doc := &model.Document{
		ID:        uuid.NewString(),
		Title:     "deleted",
		FileURL:   "/data/uploads/2024/01/15/y.txt",
		FileName:  "y.txt",
		Status:    model.StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = repo.Create(ctx, doc)
	require.NoError(t, err)
	require.NoError(t, repo.SoftDelete(ctx, doc.ID))

	reopened, err := NewDocumentJSONFile(path)
	require.NoError(t, err)

	_, err = reopened.FindByID(ctx, doc.ID)
	assert.Error(t, err)

	all, err := reopened.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDocumentJSONFile_SoftDeleteRollbackOnFlushFailure(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "documents.json")

	repo, err := NewDocumentJSONFile(path)
	require.NoError(t, err)

	created := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	doc := &model.Document{
		ID:        uuid.NewString(),
		Title:     "kept",
		FileURL:   "/data/uploads/2024/01/15/z.txt",
		FileName:  "z.txt",
		Status:    model.StatusProcessing,
		CreatedAt: created,
		UpdatedAt: created,
	}
	_, err = repo.Create(ctx, doc)
	require.NoError(t, err)

	// Make the next flush fail: the database path becomes a directory,
	// so the temp-file rename cannot replace it.
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o755))

	require.Error(t, repo.SoftDelete(ctx, doc.ID))

	found, err := repo.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Nil(t, found.DeletedAt)
	assert.True(t, found.UpdatedAt.Equal(created), "UpdatedAt must not keep the aborted deletion time")
}
