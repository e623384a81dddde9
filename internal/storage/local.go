package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalMediaPrefix is the URL path the server mounts the upload directory on.
const LocalMediaPrefix = "/media"

// LocalStore writes images below a directory served as static files.
type LocalStore struct {
	root   string
	prefix string
}

func NewLocalStore(root, prefix string) (*LocalStore, error) {
	if root == "" {
		return nil, errors.New("image upload directory is not configured")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{root: root, prefix: strings.TrimSuffix(prefix, "/")}, nil
}

// Root is the directory served under the media prefix.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	full, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o600); err != nil {
		return "", err
	}
	return s.prefix + "/" + path.Clean(key), nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// resolve maps a key to a path inside root, rejecting traversal.
func (s *LocalStore) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
