package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"docvault/internal/config"
)

// minioAdapter implements Adapter against an S3-compatible backend
// (MinIO, AWS S3, etc.). Metadata travels as object user-metadata, so
// there is no separate sidecar to manage. Scan is unsupported: sync is
// defined over local directory trees.
type minioAdapter struct {
	client *minio.Client
	bucket string
}

// NewMinIO creates an S3-compatible storage adapter backed by MinIO.
// It validates connectivity and ensures the bucket exists.
func NewMinIO(cfg config.MinIOConfig) (Adapter, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &minioAdapter{client: cli, bucket: cfg.Bucket}, nil
}

var _ Adapter = (*minioAdapter)(nil)

func (a *minioAdapter) Upload(ctx context.Context, fileName, mimeType string, data []byte, metadata map[string]string) (*UploadResult, error) {
	key := path.Join(
		time.Now().UTC().Format("2006/01/02"),
		uuid.NewString()+filepath.Ext(fileName),
	)

	userMetadata := map[string]string{"original-filename": fileName}
	for k, v := range metadata {
		userMetadata[k] = v
	}

	info, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  mimeType,
		UserMetadata: userMetadata,
	})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}
	return &UploadResult{URL: key, Size: info.Size}, nil
}

func (a *minioAdapter) Download(ctx context.Context, url string) ([]byte, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, url, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data, nil
}

func (a *minioAdapter) Delete(ctx context.Context, url string) error {
	return a.client.RemoveObject(ctx, a.bucket, url, minio.RemoveObjectOptions{})
}

func (a *minioAdapter) Exists(ctx context.Context, url string) (bool, error) {
	_, err := a.client.StatObject(ctx, a.bucket, url, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat object: %w", err)
	}
	return true, nil
}

// DownloadURL generates a presigned GET URL with the given expiry.
func (a *minioAdapter) DownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := a.client.PresignedGetObject(ctx, a.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}
	return u.String(), nil
}

func (a *minioAdapter) Scan(ctx context.Context, directories []string) ([]ScannedFile, error) {
	return nil, ErrScanUnsupported
}

func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey"
	}
	return false
}
