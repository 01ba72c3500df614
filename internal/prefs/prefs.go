// Package prefs persists small per-document UI preferences, currently
// the panel window geometry saved by the resize command. Files live in
// a single per-user directory and every operation takes an exclusive
// file lock, so multiple plugin processes can share the store safely.
package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/hashicorp/go-hclog"
)

const (
	dirMode  = 0o755
	fileMode = 0o644

	lockName  = ".prefs.lock"
	lockRetry = 100 * time.Millisecond
)

// Window is the saved panel geometry for one document.
type Window struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// filePayload is the on-disk shape of one document's preference file.
type filePayload struct {
	Window Window `json:"window"`
}

// Store reads and writes one JSON preference file per document id.
type Store struct {
	dir         string
	lockTimeout time.Duration
	log         hclog.Logger
}

// NewStore creates a store rooted at dir. The directory is created
// lazily on first use.
func NewStore(dir string, log hclog.Logger) *Store {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Store{
		dir:         dir,
		lockTimeout: 10 * time.Second,
		log:         log,
	}
}

// DefaultDir returns the per-user preference directory.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".relink", "prefs"), nil
}

// SaveWindow persists the panel geometry for a document, replacing any
// previously saved size.
func (s *Store) SaveWindow(docID string, w Window) error {
	if err := validateDocID(docID); err != nil {
		return err
	}
	if w.Width <= 0 || w.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", w.Width, w.Height)
	}
	return s.withLock(func() error {
		data, err := json.MarshalIndent(filePayload{Window: w}, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal preferences: %w", err)
		}
		return s.atomicWriteFile(s.path(docID), data)
	})
}

// LoadWindow returns the saved panel geometry for a document. The
// second return value is false when nothing has been saved yet.
func (s *Store) LoadWindow(docID string) (Window, bool, error) {
	if err := validateDocID(docID); err != nil {
		return Window{}, false, err
	}
	var payload filePayload
	found := false
	err := s.withLock(func() error {
		data, err := os.ReadFile(s.path(docID))
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read preference file: %w", err)
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("preference file for %s is corrupted: %w", docID, err)
		}
		found = true
		return nil
	})
	if err != nil {
		return Window{}, false, err
	}
	return payload.Window, found, nil
}

// Remove deletes a document's preference file. Removing a document
// that was never saved is not an error.
func (s *Store) Remove(docID string) error {
	if err := validateDocID(docID); err != nil {
		return err
	}
	return s.withLock(func() error {
		if err := os.Remove(s.path(docID)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove preference file: %w", err)
		}
		return nil
	})
}

func (s *Store) path(docID string) string {
	return filepath.Join(s.dir, docID+".json")
}

// withLock runs fn while holding an exclusive lock on the store
// directory. The lock is advisory but shared by every process using
// the same directory.
func (s *Store) withLock(fn func() error) error {
	if err := os.MkdirAll(s.dir, dirMode); err != nil {
		return fmt.Errorf("create preference directory: %w", err)
	}

	fileLock := flock.New(filepath.Join(s.dir, lockName))

	ctx, cancel := context.WithTimeout(context.Background(), s.lockTimeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("acquire preference lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("preference lock not acquired within %v", s.lockTimeout)
	}
	defer func() {
		if err := fileLock.Unlock(); err != nil {
			s.log.Warn("failed to release preference lock", "error", err)
		}
	}()

	return fn()
}

// atomicWriteFile writes data via a temp file in the same directory
// followed by a rename, so readers never observe a partial file.
func (s *Store) atomicWriteFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-prefs-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tmp = nil

	if err := os.Chmod(tmpPath, fileMode); err != nil {
		return fmt.Errorf("set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// validateDocID rejects ids that would escape the store directory when
// used as a file name.
func validateDocID(id string) error {
	if id == "" {
		return fmt.Errorf("document id is empty")
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("document id %q is not a valid file name", id)
	}
	return nil
}
