// Package storage contains the binary content adapter, decoupled from
// metadata persistence. The filesystem implementation is the default;
// the MinIO implementation serves S3-compatible deployments. Both
// return opaque locators (URLs) that the repository stores as the
// correlation key for reconciliation.
package storage

import (
	"context"
	"time"
)

// UploadResult describes a stored object.
type UploadResult struct {
	// URL is the adapter-specific locator for the stored object. For
	// the filesystem adapter this is an absolute path; for MinIO it is
	// the object key.
	URL  string
	Size int64
}

// ScannedFile describes a file discovered by Scan.
type ScannedFile struct {
	FileName   string
	FilePath   string
	FileSize   int64
	MimeType   string
	ModifiedAt time.Time
}

// Adapter persists and retrieves raw file bytes.
type Adapter interface {
	// Upload persists data under a generated unique name partitioned by
	// date (YYYY/MM/DD/<random-id><ext>). Optional metadata is written
	// as a sidecar next to the object. Uniqueness relies on the random
	// identifier; no coordination between concurrent uploads.
	Upload(ctx context.Context, fileName, mimeType string, data []byte, metadata map[string]string) (*UploadResult, error)

	// Download returns the object bytes.
	// Fails with ErrFileNotFound if the object is absent.
	Download(ctx context.Context, url string) ([]byte, error)

	// Delete removes the object and its metadata sidecar if present.
	// A missing sidecar is not an error.
	Delete(ctx context.Context, url string) error

	// Exists reports whether the object is present.
	Exists(ctx context.Context, url string) (bool, error)

	// DownloadURL returns a URL clients can fetch the object from. The
	// filesystem adapter returns a static path under the API serving
	// prefix and ignores expiry; MinIO returns a real presigned URL.
	DownloadURL(ctx context.Context, url string, expiry time.Duration) (string, error)

	// Scan recursively lists files under the given directories,
	// falling back to the adapter's default root when none are given.
	// Directory paths may use the ~/ home shorthand and are
	// deduplicated and resolved to absolute form before walking.
	// Fails with ErrScanUnsupported on adapters without a local tree.
	Scan(ctx context.Context, directories []string) ([]ScannedFile, error)
}
