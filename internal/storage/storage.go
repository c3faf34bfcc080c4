// Package storage keeps attachment binaries on local disk and hands out
// publicly resolvable URLs for them.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Store struct {
	dir  string
	base string
}

// NewStore roots blob storage at dir; base is the public URL prefix the
// server exposes the directory under.
func NewStore(dir, base string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &Store{dir: dir, base: strings.TrimRight(base, "/")}, nil
}

// Save writes a blob under <messageID>/<uuid>.<ext> and returns the
// relative storage path.
func (s *Store) Save(messageID, fileName string, data []byte) (string, error) {
	ext := filepath.Ext(fileName)
	path := filepath.Join(messageID, uuid.NewString()+ext)

	full := filepath.Join(s.dir, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create attachment dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write attachment: %w", err)
	}
	return filepath.ToSlash(path), nil
}

// Remove deletes the blob at the given storage path.
func (s *Store) Remove(path string) error {
	return os.Remove(filepath.Join(s.dir, filepath.FromSlash(path)))
}

// PublicURL resolves a storage path to the URL it is served under.
func (s *Store) PublicURL(path string) string {
	return s.base + "/attachments/" + path
}

// Dir returns the root directory, for static file serving.
func (s *Store) Dir() string {
	return s.dir
}
