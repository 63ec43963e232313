// Package contentstore is hivecrawl's decision for spec.md §9's open
// question on the content-storage collaborator contract: fetched bodies are
// written to content-hash-derived paths under a configured directory, the
// same fan-out scheme internal/frontier uses for frontier files, so a
// single-machine deployment needs no extra service to hold page bodies.
package contentstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// Store writes fetched bodies to disk under baseDir.
type Store struct {
	baseDir string
}

// New builds a Store rooted at baseDir, creating it if necessary.
func New(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("contentstore: create base dir: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// Put writes body to a path derived from its content hash and returns that
// path, to be recorded as the visited record's ContentPath.
func (s *Store) Put(body []byte) (string, error) {
	sum := sha256.Sum256(body)
	h := hex.EncodeToString(sum[:])
	path := filepath.Join(s.baseDir, h[0:2], h[2:4], h)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("contentstore: create content dir: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("contentstore: write content: %w", err)
	}
	return path, nil
}

// Get reads back a previously stored body.
func (s *Store) Get(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("contentstore: read content: %w", err)
	}
	return b, nil
}
