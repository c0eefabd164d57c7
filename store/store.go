// Package store provides the persistent blob storage consumed by the network
// manager for configuration snapshots. Values are opaque byte slices keyed by
// a namespace and key pair; interpretation is entirely up to the caller.
package store

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned by Get when no entry exists for the namespace and
// key pair. Callers rely on this being distinguishable from a read failure.
var ErrNotFound = errors.New("store: entry not found")

type Store interface {
	Get(namespace, key string) ([]byte, error)
	Put(namespace, key string, value []byte) error
	Delete(namespace, key string) error
}

// FileStore keeps each entry as a file at root/namespace/key. Writes go
// through a temp file and rename so a crash never leaves a torn entry.
type FileStore struct {
	root string
	mu   sync.Mutex
	l    *logrus.Logger
}

func NewFileStore(l *logrus.Logger, root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("failed to create store root: %w", err)
	}
	return &FileStore{root: root, l: l}, nil
}

func (s *FileStore) Get(namespace, key string) ([]byte, error) {
	p, err := s.entryPath(namespace, key)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := ioutil.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (s *FileStore) Put(namespace, key string, value []byte) error {
	p, err := s.entryPath(namespace, key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
		return err
	}

	tmp := p + ".tmp"
	if err := ioutil.WriteFile(tmp, value, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return err
	}

	s.l.WithField("namespace", namespace).WithField("key", key).
		WithField("bytes", len(value)).Debug("Stored entry")
	return nil
}

func (s *FileStore) Delete(namespace, key string) error {
	p, err := s.entryPath(namespace, key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = os.Remove(p)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *FileStore) entryPath(namespace, key string) (string, error) {
	if !validName(namespace) || !validName(key) {
		return "", fmt.Errorf("store: invalid namespace or key %q/%q", namespace, key)
	}
	return filepath.Join(s.root, namespace, key), nil
}

// Namespaces and keys become path elements, keep them boring.
func validName(s string) bool {
	if s == "" || strings.ContainsAny(s, "/\\") || s == "." || s == ".." {
		return false
	}
	return true
}
