package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const metadataSidecarSuffix = ".meta.json"

// filesystemAdapter stores objects as files under a base path, with
// upload keys partitioned by date: YYYY/MM/DD/<uuid><ext>.
type filesystemAdapter struct {
	basePath    string
	servePrefix string
}

// sidecar is the metadata file written next to each uploaded object.
type sidecar struct {
	OriginalFilename string            `json:"originalFilename"`
	MimeType         string            `json:"mimeType"`
	Metadata         map[string]string `json:"metadata"`
	UploadedAt       time.Time         `json:"uploadedAt"`
}

// NewFilesystem creates a filesystem adapter rooted at basePath.
// servePrefix is the HTTP path prefix static download URLs are built
// under. The base directory is created if missing.
func NewFilesystem(basePath, servePrefix string) (Adapter, error) {
	if basePath == "" {
		return nil, fmt.Errorf("storage: base path is required")
	}

	abs, err := resolveDir(basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create base path: %w", err)
	}

	return &filesystemAdapter{
		basePath:    abs,
		servePrefix: strings.TrimSuffix(servePrefix, "/"),
	}, nil
}

var _ Adapter = (*filesystemAdapter)(nil)

func (a *filesystemAdapter) Upload(ctx context.Context, fileName, mimeType string, data []byte, metadata map[string]string) (*UploadResult, error) {
	key := filepath.Join(
		time.Now().UTC().Format("2006/01/02"),
		uuid.NewString()+filepath.Ext(fileName),
	)
	fullPath := filepath.Join(a.basePath, key)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return nil, fmt.Errorf("storage: create directory: %w", err)
	}

	tmp := fullPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return nil, fmt.Errorf("storage: write temp file: %w", err)
	}
	if err := os.Rename(tmp, fullPath); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("storage: rename temp file: %w", err)
	}

	if len(metadata) > 0 {
		sc := sidecar{
			OriginalFilename: fileName,
			MimeType:         mimeType,
			Metadata:         metadata,
			UploadedAt:       time.Now().UTC(),
		}
		encoded, err := json.Marshal(sc)
		if err != nil {
			return nil, fmt.Errorf("storage: encode sidecar: %w", err)
		}
		if err := os.WriteFile(fullPath+metadataSidecarSuffix, encoded, 0o644); err != nil {
			return nil, fmt.Errorf("storage: write sidecar: %w", err)
		}
	}

	return &UploadResult{URL: fullPath, Size: int64(len(data))}, nil
}

func (a *filesystemAdapter) Download(ctx context.Context, url string) ([]byte, error) {
	p, err := a.objectPath(url)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("storage: read file: %w", err)
	}
	return data, nil
}

// Delete removes the object and its sidecar. Deleting an absent object
// is a no-op, so retries after partial failures converge.
func (a *filesystemAdapter) Delete(ctx context.Context, url string) error {
	p, err := a.objectPath(url)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: remove file: %w", err)
	}
	if err := os.Remove(p + metadataSidecarSuffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: remove sidecar: %w", err)
	}
	return nil
}

func (a *filesystemAdapter) Exists(ctx context.Context, url string) (bool, error) {
	p, err := a.objectPath(url)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("storage: stat file: %w", err)
	}
	return true, nil
}

// DownloadURL builds a static path under the serving prefix. Expiry is
// ignored; the filesystem adapter cannot enforce it. Files registered
// from outside the base path have no static route and fail with
// ErrNoStaticRoute; callers fall back to streaming the content.
func (a *filesystemAdapter) DownloadURL(ctx context.Context, url string, expiry time.Duration) (string, error) {
	p, err := a.objectPath(url)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(a.basePath, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrNoStaticRoute
	}
	return a.servePrefix + "/" + path.Clean(filepath.ToSlash(rel)), nil
}

// Scan walks the given directories (default: the adapter root) and
// lists regular files. Metadata sidecars and dotfiles are skipped.
func (a *filesystemAdapter) Scan(ctx context.Context, directories []string) ([]ScannedFile, error) {
	dirs, err := NormalizeDirectories(directories, a.basePath)
	if err != nil {
		return nil, err
	}

	var files []ScannedFile
	for _, dir := range dirs {
		// A missing directory must fail loudly: silently skipping it
		// would report files as vanished and soft-delete their records.
		info, err := os.Stat(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
			}
			return nil, fmt.Errorf("storage: stat %s: %w", dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: %s is not a directory", ErrDirectoryNotFound, dir)
		}

		err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() {
				return nil
			}

			name := d.Name()
			if strings.HasSuffix(name, metadataSidecarSuffix) || strings.HasPrefix(name, ".") {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return err
			}

			files = append(files, ScannedFile{
				FileName:   name,
				FilePath:   p,
				FileSize:   info.Size(),
				MimeType:   mimeTypeOf(name),
				ModifiedAt: info.ModTime().UTC(),
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("storage: scan %s: %w", dir, err)
		}
	}
	return files, nil
}

// objectPath resolves a locator to an absolute path. Relative locators
// are object keys under the base path and must not escape it. Absolute
// locators are accepted as-is: they only come from the repository,
// which stores them for uploads (under the base path) and for files
// registered by Scan, which may live outside it.
func (a *filesystemAdapter) objectPath(url string) (string, error) {
	if url == "" {
		return "", ErrInvalidURL
	}

	p := filepath.Clean(url)
	if filepath.IsAbs(p) {
		return p, nil
	}

	p = filepath.Join(a.basePath, p)
	if p != a.basePath && !strings.HasPrefix(p, a.basePath+string(filepath.Separator)) {
		return "", ErrInvalidURL
	}
	return p, nil
}

// NormalizeDirectories expands the ~/ home shorthand, resolves each
// directory to absolute form, and deduplicates while preserving order.
// An empty input falls back to the default root.
func NormalizeDirectories(directories []string, defaultRoot string) ([]string, error) {
	if len(directories) == 0 {
		directories = []string{defaultRoot}
	}

	seen := make(map[string]struct{}, len(directories))
	out := make([]string, 0, len(directories))
	for _, dir := range directories {
		abs, err := resolveDir(dir)
		if err != nil {
			return nil, fmt.Errorf("storage: resolve directory %s: %w", dir, err)
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	}
	return out, nil
}

func resolveDir(dir string) (string, error) {
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	return filepath.Abs(dir)
}

func mimeTypeOf(fileName string) string {
	if mt := mime.TypeByExtension(filepath.Ext(fileName)); mt != "" {
		return mt
	}
	return "application/octet-stream"
}
