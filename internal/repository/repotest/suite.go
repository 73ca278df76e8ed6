// Package repotest contains a conformance suite for
// repository.DocumentRepository implementations. Every backend must
// pass the same suite so the contract stays uniform regardless of the
// persistence mechanism.
package repotest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/apperr"
	"docvault/internal/model"
	"docvault/internal/repository"
)

// Factory returns a fresh, empty repository for each subtest.
type Factory func(t *testing.T) repository.DocumentRepository

// Run exercises the full DocumentRepository contract against the
// backend produced by the factory.
func Run(t *testing.T, newRepo Factory) {
	t.Run("create then find", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		doc := sampleDocument("find me", time.Now().UTC())
		created, err := repo.Create(ctx, doc)
		require.NoError(t, err)
		require.NotNil(t, created)

		found, err := repo.FindByID(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, doc.ID, found.ID)
		assert.Equal(t, "find me", found.Title)
		assert.Equal(t, model.StatusProcessing, found.Status)
		assert.Equal(t, doc.FileURL, found.FileURL)
		assert.True(t, found.CreatedAt.Equal(found.UpdatedAt))
	})

	t.Run("create defaults nil tags and metadata to empty", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		doc := sampleDocument("defaults", time.Now().UTC())
		doc.Tags = nil
		doc.Metadata = nil
		_, err := repo.Create(ctx, doc)
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, doc.ID)
		require.NoError(t, err)
		assert.NotNil(t, found.Tags)
		assert.Empty(t, found.Tags)
		assert.NotNil(t, found.Metadata)
		assert.Empty(t, found.Metadata)
	})

	t.Run("duplicate tags are preserved in order", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		doc := sampleDocument("tagged", time.Now().UTC())
		doc.Tags = []string{"b", "a", "b"}
		_, err := repo.Create(ctx, doc)
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a", "b"}, found.Tags)
	})

	t.Run("find missing id", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.FindByID(context.Background(), uuid.NewString())
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("list orders newest first and paginates", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		base := time.Now().UTC().Truncate(time.Second)
		ids := make([]string, 5)
		for i := 0; i < 5; i++ {
			doc := sampleDocument(fmt.Sprintf("doc %d", i), base.Add(time.Duration(i)*time.Minute))
			ids[i] = doc.ID
			_, err := repo.Create(ctx, doc)
			require.NoError(t, err)
		}

		page1, err := repo.List(ctx, repository.PageQuery{Page: 1, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, page1.Total)
		require.Len(t, page1.Items, 2)
		assert.Equal(t, ids[4], page1.Items[0].ID)
		assert.Equal(t, ids[3], page1.Items[1].ID)

		page3, err := repo.List(ctx, repository.PageQuery{Page: 3, Limit: 2})
		require.NoError(t, err)
		require.Len(t, page3.Items, 1)
		assert.Equal(t, ids[0], page3.Items[0].ID)
	})

	t.Run("list page beyond data returns empty items with total", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Create(ctx, sampleDocument("only one", time.Now().UTC()))
		require.NoError(t, err)

		res, err := repo.List(ctx, repository.PageQuery{Page: 9, Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, res.Items)
		assert.Equal(t, 1, res.Total)
	})

	t.Run("update merges only provided fields", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		desc := "original description"
		doc := sampleDocument("original title", time.Now().UTC().Add(-time.Minute))
		doc.Description = &desc
		doc.Tags = []string{"keep"}
		_, err := repo.Create(ctx, doc)
		require.NoError(t, err)

		title := "new title"
		updated, err := repo.Update(ctx, doc.ID, &model.DocumentPatch{Title: &title, HasTitle: true})
		require.NoError(t, err)

		assert.Equal(t, "new title", updated.Title)
		require.NotNil(t, updated.Description)
		assert.Equal(t, desc, *updated.Description)
		assert.Equal(t, []string{"keep"}, updated.Tags)
		assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))
		assert.True(t, updated.CreatedAt.Equal(doc.CreatedAt))
	})

	t.Run("update with explicit null clears description", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		desc := "will be cleared"
		doc := sampleDocument("nullable", time.Now().UTC())
		doc.Description = &desc
		_, err := repo.Create(ctx, doc)
		require.NoError(t, err)

		updated, err := repo.Update(ctx, doc.ID, &model.DocumentPatch{Description: nil, HasDescription: true})
		require.NoError(t, err)
		assert.Nil(t, updated.Description)
	})

	t.Run("update missing id", func(t *testing.T) {
		repo := newRepo(t)

		title := "x"
		_, err := repo.Update(context.Background(), uuid.NewString(), &model.DocumentPatch{Title: &title, HasTitle: true})
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("soft delete hides record from all reads", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		doc := sampleDocument("doomed", time.Now().UTC())
		_, err := repo.Create(ctx, doc)
		require.NoError(t, err)

		require.NoError(t, repo.SoftDelete(ctx, doc.ID))

		_, err = repo.FindByID(ctx, doc.ID)
		assert.True(t, apperr.IsNotFound(err))

		res, err := repo.List(ctx, repository.PageQuery{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, res.Items)
		assert.Zero(t, res.Total)

		all, err := repo.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("soft delete twice fails", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		doc := sampleDocument("twice", time.Now().UTC())
		_, err := repo.Create(ctx, doc)
		require.NoError(t, err)

		require.NoError(t, repo.SoftDelete(ctx, doc.ID))
		assert.True(t, apperr.IsNotFound(repo.SoftDelete(ctx, doc.ID)))
	})

	t.Run("soft delete missing id", func(t *testing.T) {
		repo := newRepo(t)
		assert.True(t, apperr.IsNotFound(repo.SoftDelete(context.Background(), uuid.NewString())))
	})

	t.Run("clear wipes everything", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			_, err := repo.Create(ctx, sampleDocument(fmt.Sprintf("doc %d", i), time.Now().UTC()))
			require.NoError(t, err)
		}
		require.NoError(t, repo.Clear(ctx))

		res, err := repo.List(ctx, repository.PageQuery{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Zero(t, res.Total)
	})
}

func sampleDocument(title string, createdAt time.Time) *model.Document {
	id := uuid.NewString()
	return &model.Document{
		ID:        id,
		Title:     title,
		Tags:      []string{},
		Metadata:  map[string]string{},
		FileURL:   "/data/uploads/2024/01/15/" + id + ".txt",
		FileName:  "sample.txt",
		FileSize:  42,
		MimeType:  "text/plain",
		Status:    model.StatusProcessing,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}
