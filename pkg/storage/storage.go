// Package storage defines the FileStore interface used to publish timeline
// archives. A store is either a local directory or an S3 bucket prefix;
// [Open] picks one from a URL so the CLI context can name the destination.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrInvalidPath is returned for paths that are absolute or leave the
// store root.
var ErrInvalidPath = errors.New("storage: invalid path")

// FileStore is where archives are written and read back.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations are safe for concurrent use.
type FileStore interface {
	// Read opens the named file for reading.
	// The caller must close the returned ReadCloser when done.
	// If the file does not exist, an error wrapping os.ErrNotExist is returned.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write opens the named file for writing.
	// If the file already exists it is truncated.
	// Parent directories are created automatically.
	// The caller must close the returned WriteCloser to flush data.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Delete removes the named file.
	// If the file does not exist, Delete returns nil (idempotent).
	Delete(ctx context.Context, path string) error

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, path string) (bool, error)

	// List returns the paths under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// checkPath rejects empty, absolute and escaping paths.
func checkPath(p string) error {
	if p == "" || strings.HasPrefix(p, "/") || path.Clean(p) != p || p == ".." || strings.HasPrefix(p, "../") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return nil
}
