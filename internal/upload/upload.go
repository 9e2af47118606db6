// Package upload stores uploaded images on the local filesystem with
// random names. Third-party image services are intentionally not used.
package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// MaxImageSize is the upload size limit in bytes.
const MaxImageSize = 5 << 20

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Store saves files under a base directory.
type Store struct {
	dir string
}

// New creates the upload directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the base directory.
func (s *Store) Dir() string {
	return s.dir
}

// Writable checks that the upload directory accepts writes, for the
// upload-configuration probe.
func (s *Store) Writable() bool {
	f, err := os.CreateTemp(s.dir, ".probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}

// AllowedType reports whether the content type is accepted and returns
// the extension to store it under.
func AllowedType(contentType string) (string, bool) {
	ext, ok := allowedTypes[contentType]
	return ext, ok
}

// Save writes the image to disk under a random name and returns the
// path relative to the base directory.
func (s *Store) Save(r io.Reader, ext string) (string, error) {
	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, io.LimitReader(r, MaxImageSize)); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return name, nil
}

// Remove deletes a stored file by its relative name. Missing files are
// not an error.
func (s *Store) Remove(name string) error {
	err := os.Remove(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
