package storage

import "errors"

// Adapter errors.
var (
	// ErrFileNotFound indicates the requested object does not exist.
	ErrFileNotFound = errors.New("storage: file not found")

	// ErrInvalidURL indicates the locator is malformed or escapes the
	// adapter's root.
	ErrInvalidURL = errors.New("storage: invalid url")

	// ErrScanUnsupported indicates the adapter has no local directory
	// tree to scan (object-store backends).
	ErrScanUnsupported = errors.New("storage: scan not supported by this adapter")

	// ErrDirectoryNotFound indicates a requested scan directory does not
	// exist.
	ErrDirectoryNotFound = errors.New("storage: directory not found")

	// ErrNoStaticRoute indicates the object lies outside the directory
	// served over HTTP, so no static download URL exists for it.
	ErrNoStaticRoute = errors.New("storage: no static route for file")
)
