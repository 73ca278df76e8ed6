package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docvault/internal/apperr"
	"docvault/internal/model"
	"docvault/internal/repository"
	repoMocks "docvault/internal/repository/mocks"
	"docvault/internal/storage"
	storeMocks "docvault/internal/storage/mocks"
)

const testRoot = "/srv/docvault/uploads"

func newTestService(mStore *storeMocks.MockAdapter, mRepo *repoMocks.MockDocumentRepository) DocumentService {
	return NewDocumentService(mStore, mRepo, testRoot, 1<<20)
}

func TestDocumentService_Upload(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		input      UploadInput
		setupMocks func(mStore *storeMocks.MockAdapter, mRepo *repoMocks.MockDocumentRepository)
		check      func(t *testing.T, doc *model.Document)
		wantCode   string
		wantErrMsg string
	}{
		{
			name: "happy path with defaults",
			input: UploadInput{
				Data:     []byte("hello world"),
				FileName: "notes.txt",
			},
			setupMocks: func(mStore *storeMocks.MockAdapter, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Upload", ctx, "notes.txt", "application/octet-stream", []byte("hello world"), map[string]string(nil)).
					Return(&storage.UploadResult{URL: testRoot + "/2024/01/15/abc.txt", Size: 11}, nil)
				mRepo.On("Create", ctx, mock.MatchedBy(func(doc *model.Document) bool {
					return doc.Title == "notes.txt" &&
						doc.FileURL == testRoot+"/2024/01/15/abc.txt" &&
						doc.FileSize == 11 &&
						doc.Status == model.StatusProcessing &&
						doc.CreatedAt.Equal(doc.UpdatedAt)
				})).Return(func(ctx context.Context, doc *model.Document) *model.Document { return doc }, nil)
			},
			check: func(t *testing.T, doc *model.Document) {
				assert.Equal(t, "notes.txt", doc.Title)
				assert.Equal(t, model.StatusProcessing, doc.Status)
			},
		},
		{
			name: "explicit title and tags",
			input: UploadInput{
				Data:     []byte("x"),
				FileName: "a.pdf",
				MimeType: "application/pdf",
				Title:    "Quarterly Report",
				Tags:     []string{"finance", "finance"},
			},
			setupMocks: func(mStore *storeMocks.MockAdapter, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Upload", ctx, "a.pdf", "application/pdf", []byte("x"), map[string]string(nil)).
					Return(&storage.UploadResult{URL: testRoot + "/2024/01/15/b.pdf", Size: 1}, nil)
				mRepo.On("Create", ctx, mock.MatchedBy(func(doc *model.Document) bool {
					return doc.Title == "Quarterly Report" && len(doc.Tags) == 2
				})).Return(func(ctx context.Context, doc *model.Document) *model.Document { return doc }, nil)
			},
			check: func(t *testing.T, doc *model.Document) {
				// Duplicates are preserved, no implicit dedup.
				assert.Equal(t, []string{"finance", "finance"}, doc.Tags)
			},
		},
		{
			name:     "empty file rejected",
			input:    UploadInput{FileName: "empty.txt"},
			wantCode: apperr.CodeValidation,
		},
		{
			name: "oversize file rejected before any write",
			input: UploadInput{
				Data:     make([]byte, 1<<20+1),
				FileName: "big.bin",
			},
			wantCode: apperr.CodeValidation,
		},
		{
			name: "storage error",
			input: UploadInput{
				Data:     []byte("hello"),
				FileName: "f.txt",
			},
			setupMocks: func(mStore *storeMocks.MockAdapter, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Upload", ctx, "f.txt", "application/octet-stream", []byte("hello"), map[string]string(nil)).
					Return(nil, errors.New("disk full"))
			},
			wantCode: apperr.CodeInternal,
		},
		{
			name: "repository error rolls back stored object",
			input: UploadInput{
				Data:     []byte("hello"),
				FileName: "f.txt",
			},
			setupMocks: func(mStore *storeMocks.MockAdapter, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Upload", ctx, "f.txt", "application/octet-stream", []byte("hello"), map[string]string(nil)).
					Return(&storage.UploadResult{URL: testRoot + "/2024/01/15/f.txt", Size: 5}, nil)
				mRepo.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
				mStore.On("Delete", ctx, testRoot+"/2024/01/15/f.txt").Return(nil)
			},
			wantCode: apperr.CodeInternal,
		},
		{
			name: "repository error with failed rollback",
			input: UploadInput{
				Data:     []byte("hello"),
				FileName: "f.txt",
			},
			setupMocks: func(mStore *storeMocks.MockAdapter, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Upload", ctx, "f.txt", "application/octet-stream", []byte("hello"), map[string]string(nil)).
					Return(&storage.UploadResult{URL: testRoot + "/2024/01/15/f.txt", Size: 5}, nil)
				mRepo.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
				mStore.On("Delete", ctx, testRoot+"/2024/01/15/f.txt").Return(errors.New("delete fail"))
			},
			wantCode: apperr.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockAdapter)
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := newTestService(mStore, mRepo)

			if tt.setupMocks != nil {
				tt.setupMocks(mStore, mRepo)
			}

			doc, err := svc.Upload(ctx, tt.input)

			if tt.wantCode != "" {
				require.Error(t, err)
				appErr := apperr.From(err)
				require.NotNil(t, appErr)
				assert.Equal(t, tt.wantCode, appErr.Code)
			} else {
				require.NoError(t, err)
				require.NotNil(t, doc)
				if tt.check != nil {
					tt.check(t, doc)
				}
			}

			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_List(t *testing.T) {
	ctx := context.Background()

	mRepo := new(repoMocks.MockDocumentRepository)
	svc := newTestService(new(storeMocks.MockAdapter), mRepo)

	mRepo.On("List", ctx, repository.PageQuery{Page: 2, Limit: 10}).
		Return(&repository.PageResult[model.Document]{
			Items: []model.Document{{ID: "a"}},
			Total: 25,
		}, nil)

	res, err := svc.List(ctx, 2, 10)

	require.NoError(t, err)
	assert.Equal(t, 25, res.Total)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, 10, res.Limit)
	assert.Equal(t, 3, res.TotalPages)
	mRepo.AssertExpectations(t)
}

func TestDocumentService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("empty id", func(t *testing.T) {
		svc := newTestService(new(storeMocks.MockAdapter), new(repoMocks.MockDocumentRepository))
		_, err := svc.Get(ctx, "")
		appErr := apperr.From(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperr.CodeValidation, appErr.Code)
	})

	t.Run("not found passes through", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(new(storeMocks.MockAdapter), mRepo)

		mRepo.On("FindByID", ctx, "missing").Return(nil, apperr.NotFound("document", "missing"))

		_, err := svc.Get(ctx, "missing")
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestDocumentService_Content(t *testing.T) {
	ctx := context.Background()

	t.Run("raw content", func(t *testing.T) {
		mStore := new(storeMocks.MockAdapter)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo)

		doc := &model.Document{ID: "d1", FileURL: "/x/a.txt", FileName: "a.txt", MimeType: "text/plain"}
		mRepo.On("FindByID", ctx, "d1").Return(doc, nil)
		mStore.On("Download", ctx, "/x/a.txt").Return([]byte("plain text"), nil)

		res, err := svc.Content(ctx, "d1", false)

		require.NoError(t, err)
		assert.Equal(t, []byte("plain text"), res.Content)
		assert.Equal(t, "text/plain", res.MimeType)
		assert.False(t, res.Rendered)
	})

	t.Run("markdown rendered to html", func(t *testing.T) {
		mStore := new(storeMocks.MockAdapter)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo)

		doc := &model.Document{ID: "d2", FileURL: "/x/a.md", FileName: "a.md", MimeType: "text/markdown"}
		mRepo.On("FindByID", ctx, "d2").Return(doc, nil)
		mStore.On("Download", ctx, "/x/a.md").Return([]byte("# Title"), nil)

		res, err := svc.Content(ctx, "d2", true)

		require.NoError(t, err)
		assert.True(t, res.Rendered)
		assert.Contains(t, string(res.Content), "<h1")
		assert.Contains(t, res.MimeType, "text/html")
	})

	t.Run("html not requested leaves markdown raw", func(t *testing.T) {
		mStore := new(storeMocks.MockAdapter)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo)

		doc := &model.Document{ID: "d3", FileURL: "/x/a.md", FileName: "a.md", MimeType: "text/markdown"}
		mRepo.On("FindByID", ctx, "d3").Return(doc, nil)
		mStore.On("Download", ctx, "/x/a.md").Return([]byte("# Title"), nil)

		res, err := svc.Content(ctx, "d3", false)

		require.NoError(t, err)
		assert.False(t, res.Rendered)
		assert.Equal(t, []byte("# Title"), res.Content)
	})

	t.Run("missing file maps to not found", func(t *testing.T) {
		mStore := new(storeMocks.MockAdapter)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo)

		doc := &model.Document{ID: "d4", FileURL: "/x/gone.txt", FileName: "gone.txt", MimeType: "text/plain"}
		mRepo.On("FindByID", ctx, "d4").Return(doc, nil)
		mStore.On("Download", ctx, "/x/gone.txt").Return(nil, storage.ErrFileNotFound)

		_, err := svc.Content(ctx, "d4", false)
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestDocumentService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("empty patch rejected", func(t *testing.T) {
		svc := newTestService(new(storeMocks.MockAdapter), new(repoMocks.MockDocumentRepository))

		_, err := svc.Update(ctx, "id", &model.DocumentPatch{})
		appErr := apperr.From(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperr.CodeValidation, appErr.Code)
	})

	t.Run("empty title rejected", func(t *testing.T) {
		svc := newTestService(new(storeMocks.MockAdapter), new(repoMocks.MockDocumentRepository))

		empty := ""
		_, err := svc.Update(ctx, "id", &model.DocumentPatch{Title: &empty, HasTitle: true})
		appErr := apperr.From(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperr.CodeValidation, appErr.Code)
	})

	t.Run("delegates to repository", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(new(storeMocks.MockAdapter), mRepo)

		title := "renamed"
		patch := &model.DocumentPatch{Title: &title, HasTitle: true}
		mRepo.On("Update", ctx, "id", patch).Return(&model.Document{ID: "id", Title: "renamed"}, nil)

		doc, err := svc.Update(ctx, "id", patch)

		require.NoError(t, err)
		assert.Equal(t, "renamed", doc.Title)
		mRepo.AssertExpectations(t)
	})
}

func TestDocumentService_Delete(t *testing.T) {
	ctx := context.Background()

	mRepo := new(repoMocks.MockDocumentRepository)
	mStore := new(storeMocks.MockAdapter)
	svc := newTestService(mStore, mRepo)

	mRepo.On("SoftDelete", ctx, "id").Return(nil)

	require.NoError(t, svc.Delete(ctx, "id"))

	// The stored object is not touched: it stays visible to sync.
	mStore.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	mRepo.AssertExpectations(t)
}

func TestDocumentService_Sync(t *testing.T) {
	ctx := context.Background()
	resolved := []string{testRoot}

	scanned := func(paths ...string) []storage.ScannedFile {
		files := make([]storage.ScannedFile, 0, len(paths))
		for _, p := range paths {
			files = append(files, storage.ScannedFile{
				FileName:   p[len(testRoot)+1:],
				FilePath:   p,
				FileSize:   10,
				MimeType:   "text/plain",
				ModifiedAt: time.Now().UTC(),
			})
		}
		return files
	}

	t.Run("adds unmatched files", func(t *testing.T) {
		mStore := new(storeMocks.MockAdapter)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo)

		mStore.On("Scan", ctx, resolved).
			Return(scanned(testRoot+"/a.txt", testRoot+"/b.txt"), nil)
		mRepo.On("ListAll", ctx).
			Return([]model.Document{{ID: "rec-a", FileURL: testRoot + "/a.txt"}}, nil)
		mRepo.On("Create", ctx, mock.MatchedBy(func(doc *model.Document) bool {
			return doc.FileURL == testRoot+"/b.txt" &&
				doc.Title == "b.txt" &&
				doc.Status == model.StatusProcessing &&
				len(doc.Tags) == 0
		})).Return(func(ctx context.Context, doc *model.Document) *model.Document { return doc }, nil)

		res, err := svc.Sync(ctx, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, res.Added)
		assert.Equal(t, 0, res.Removed)
		assert.Equal(t, resolved, res.Directories)
		mRepo.AssertExpectations(t)
	})

	t.Run("removes records whose files vanished", func(t *testing.T) {
		mStore := new(storeMocks.MockAdapter)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo)

		mStore.On("Scan", ctx, resolved).Return([]storage.ScannedFile{}, nil)
		mRepo.On("ListAll", ctx).
			Return([]model.Document{{ID: "rec-c", FileURL: testRoot + "/c.txt"}}, nil)
		mRepo.On("SoftDelete", ctx, "rec-c").Return(nil)

		res, err := svc.Sync(ctx, nil)

		require.NoError(t, err)
		assert.Equal(t, 0, res.Added)
		assert.Equal(t, 1, res.Removed)
		mRepo.AssertExpectations(t)
	})

	t.Run("idempotent when storage matches records", func(t *testing.T) {
		mStore := new(storeMocks.MockAdapter)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo)

		mStore.On("Scan", ctx, resolved).Return(scanned(testRoot+"/a.txt"), nil)
		mRepo.On("ListAll", ctx).
			Return([]model.Document{{ID: "rec-a", FileURL: testRoot + "/a.txt"}}, nil)

		res, err := svc.Sync(ctx, nil)

		require.NoError(t, err)
		assert.Equal(t, 0, res.Added)
		assert.Equal(t, 0, res.Removed)
		mRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		mRepo.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
	})

	t.Run("concurrent delete during removal is tolerated", func(t *testing.T) {
		mStore := new(storeMocks.MockAdapter)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo)

		mStore.On("Scan", ctx, resolved).Return([]storage.ScannedFile{}, nil)
		mRepo.On("ListAll", ctx).
			Return([]model.Document{{ID: "rec-d", FileURL: testRoot + "/d.txt"}}, nil)
		mRepo.On("SoftDelete", ctx, "rec-d").Return(apperr.NotFound("document", "rec-d"))

		res, err := svc.Sync(ctx, nil)

		require.NoError(t, err)
		assert.Equal(t, 0, res.Removed)
	})

	t.Run("scan unsupported maps to validation error", func(t *testing.T) {
		mStore := new(storeMocks.MockAdapter)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo)

		mStore.On("Scan", ctx, resolved).Return(nil, storage.ErrScanUnsupported)

		_, err := svc.Sync(ctx, nil)
		appErr := apperr.From(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperr.CodeValidation, appErr.Code)
	})

	t.Run("missing directory maps to validation error", func(t *testing.T) {
		mStore := new(storeMocks.MockAdapter)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo)

		mStore.On("Scan", ctx, resolved).
			Return(nil, fmt.Errorf("%w: %s", storage.ErrDirectoryNotFound, testRoot))

		_, err := svc.Sync(ctx, nil)
		appErr := apperr.From(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperr.CodeValidation, appErr.Code)
		assert.Contains(t, appErr.Message, testRoot)
		// No reconciliation happens against a mistyped directory.
		mRepo.AssertNotCalled(t, "ListAll", mock.Anything)
		mRepo.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
	})

	t.Run("explicit directories are normalized and deduplicated", func(t *testing.T) {
		mStore := new(storeMocks.MockAdapter)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo)

		mStore.On("Scan", ctx, []string{"/srv/inbox"}).Return([]storage.ScannedFile{}, nil)
		mRepo.On("ListAll", ctx).Return([]model.Document{}, nil)

		res, err := svc.Sync(ctx, []string{"/srv/inbox", "/srv/inbox/"})

		require.NoError(t, err)
		assert.Equal(t, []string{"/srv/inbox"}, res.Directories)
	})
}

func TestDocumentService_DownloadURL(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the adapter url", func(t *testing.T) {
		mStore := new(storeMocks.MockAdapter)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo)

		doc := &model.Document{ID: "doc-1", FileURL: testRoot + "/a.txt"}
		mRepo.On("FindByID", ctx, "doc-1").Return(doc, nil)
		mStore.On("DownloadURL", ctx, doc.FileURL, time.Hour).Return("/files/a.txt", nil)

		u, err := svc.DownloadURL(ctx, "doc-1", time.Hour)

		require.NoError(t, err)
		assert.Equal(t, "/files/a.txt", u)
	})

	t.Run("no static route passes through", func(t *testing.T) {
		mStore := new(storeMocks.MockAdapter)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo)

		doc := &model.Document{ID: "doc-2", FileURL: "/elsewhere/ext.txt"}
		mRepo.On("FindByID", ctx, "doc-2").Return(doc, nil)
		mStore.On("DownloadURL", ctx, doc.FileURL, time.Hour).Return("", storage.ErrNoStaticRoute)

		_, err := svc.DownloadURL(ctx, "doc-2", time.Hour)

		// The sentinel is not wrapped: callers switch to streaming on it.
		assert.ErrorIs(t, err, storage.ErrNoStaticRoute)
	})

	t.Run("other adapter failures map to internal", func(t *testing.T) {
		mStore := new(storeMocks.MockAdapter)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo)

		doc := &model.Document{ID: "doc-3", FileURL: testRoot + "/c.txt"}
		mRepo.On("FindByID", ctx, "doc-3").Return(doc, nil)
		mStore.On("DownloadURL", ctx, doc.FileURL, time.Hour).Return("", errors.New("boom"))

		_, err := svc.DownloadURL(ctx, "doc-3", time.Hour)

		appErr := apperr.From(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperr.CodeInternal, appErr.Code)
	})
}
