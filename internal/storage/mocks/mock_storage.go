package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"docvault/internal/storage"
)

type MockAdapter struct {
	mock.Mock
}

func (m *MockAdapter) Upload(ctx context.Context, fileName, mimeType string, data []byte, metadata map[string]string) (*storage.UploadResult, error) {
	args := m.Called(ctx, fileName, mimeType, data, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.UploadResult), args.Error(1)
}

func (m *MockAdapter) Download(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockAdapter) Delete(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

func (m *MockAdapter) Exists(ctx context.Context, url string) (bool, error) {
	args := m.Called(ctx, url)
	return args.Bool(0), args.Error(1)
}

func (m *MockAdapter) DownloadURL(ctx context.Context, url string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, url, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockAdapter) Scan(ctx context.Context, directories []string) ([]storage.ScannedFile, error) {
	args := m.Called(ctx, directories)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.ScannedFile), args.Error(1)
}
