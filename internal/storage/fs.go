package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrKeyEscapesBase is returned for keys that would resolve to a path
// outside the store's base directory.
var ErrKeyEscapesBase = errors.New("key escapes base directory")

// FSStore keeps blobs on the local filesystem under a base directory.
// Keys are slash-separated relative paths; keys that resolve outside
// the base directory are rejected.
type FSStore struct{ base string }

func NewFSStore(base string) (*FSStore, error) {
	if base == "" {
		base = "./data"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{base: base}, nil
}

// resolve maps a key to an absolute path under base. filepath.Clean keeps
// leading ".." elements, so the cleaned key is checked explicitly.
func (s *FSStore) resolve(key string) (string, error) {
	if key == "" {
		return "", errors.New("empty key")
	}
	rel := filepath.Clean(filepath.FromSlash(key))
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", ErrKeyEscapesBase
	}
	return filepath.Join(s.base, rel), nil
}

func (s *FSStore) Put(key string, r io.Reader) (string, error) {
	dst, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", err
	}
	return key, nil
}

func (s *FSStore) Get(key string) (io.ReadCloser, error) {
	src, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	return os.Open(src)
}
