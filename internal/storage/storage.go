// Package storage manages the on-disk layout for uploaded files.
//
// Files are organized under date-partitioned directories (YYYY/MM/DD) with a
// generated, collision-free stored name: a random UUID hex token plus the
// original extension. The database record keeps the path relative to the base
// directory so the storage root can be relocated.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Storage manages file persistence under a base directory.
// Safe for concurrent use: every saved file gets a unique path, so writers
// never contend on the same file.
type Storage struct {
	basePath string
	now      func() time.Time // Injectable for tests
}

// New creates a Storage rooted at basePath, creating the directory if needed.
func New(basePath string) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &Storage{
		basePath: basePath,
		now:      time.Now,
	}, nil
}

// BasePath returns the storage root directory.
func (s *Storage) BasePath() string {
	return s.basePath
}

// SaveResult describes a stored file.
type SaveResult struct {
	// Path is relative to the storage base (e.g. "2026/08/31/3f2a...c1.pdf").
	Path string
	// StoredName is the generated file name within its date directory.
	StoredName string
	// Size is the number of bytes written.
	Size int64
}

// Save writes the content to a date-partitioned path under the base directory.
// The stored name is generated from a random UUID and the original extension,
// so concurrent saves of identically named files never collide.
// A partially written file is removed on error.
func (s *Storage) Save(ctx context.Context, r io.Reader, originalName string) (*SaveResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	datePath := s.datePath()
	dir := filepath.Join(s.basePath, datePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create date directory: %w", err)
	}

	storedName := GenerateStoredName(originalName)
	fullPath := filepath.Join(dir, storedName)

	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// Clean up the partial file.
		_ = os.Remove(fullPath)
		return nil, fmt.Errorf("failed to write file content: %w", err)
	}

	return &SaveResult{
		Path:       filepath.Join(datePath, storedName),
		StoredName: storedName,
		Size:       size,
	}, nil
}

// Open returns a reader for a stored file's content.
func (s *Storage) Open(relPath string) (io.ReadCloser, error) {
	full, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full) //#nosec G304 -- path is validated against the base directory
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("stored file not found: %s", relPath)
		}
		return nil, fmt.Errorf("failed to open stored file: %w", err)
	}
	return f, nil
}

// Exists reports whether a stored file is present on disk.
func (s *Storage) Exists(relPath string) bool {
	full, err := s.resolve(relPath)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

// Remove deletes a stored file. Removing a file that is already gone is not
// an error.
func (s *Storage) Remove(relPath string) error {
	full, err := s.resolve(relPath)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete stored file: %w", err)
	}
	return nil
}

// datePath returns the YYYY/MM/DD partition for the current time.
func (s *Storage) datePath() string {
	t := s.now().UTC()
	return filepath.Join(
		fmt.Sprintf("%04d", t.Year()),
		fmt.Sprintf("%02d", t.Month()),
		fmt.Sprintf("%02d", t.Day()),
	)
}

// resolve joins relPath with the base path and rejects paths that escape it.
func (s *Storage) resolve(relPath string) (string, error) {
	if relPath == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	full := filepath.Join(s.basePath, relPath)
	if !strings.HasPrefix(full, s.basePath+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes storage directory: %s", relPath)
	}
	return full, nil
}

// GenerateStoredName creates a collision-free file name preserving the
// original extension: 32 hex characters from a random UUID plus the extension.
func GenerateStoredName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return token + ext
}
