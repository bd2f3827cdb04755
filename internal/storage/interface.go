// Package storage keeps uploaded source files until their import is deleted.
package storage

import (
	"context"
	"errors"
	"io"
)

// ContentTypeCSV is stored with import files when the upload names none.
const ContentTypeCSV = "text/csv; charset=utf-8"

// ErrObjectNotFound is returned by Download for missing keys.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage holds import files under the key recorded as Import.FileRef.
type ObjectStorage interface {
	// Upload stores reader under key. size may be -1 when unknown to the local backend.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Download opens the file; the caller closes it.
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete releases the file. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
