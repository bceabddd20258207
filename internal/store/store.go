// Package store persists the annotation document as a single JSON file.
//
// Every access reads the whole file and every write replaces it atomically
// (temp file + rename). Mutations run as one critical section guarded by a
// process-wide mutex and an advisory file lock, so two writers never interleave
// their load and save.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/heimdex/heimdex-annotator/internal/annotation"
)

const (
	lockSuffix   = ".lock"
	backupSuffix = ".bak"
	indent       = "    "

	lockRetryDelay = 20 * time.Millisecond
)

// MutateFunc receives the freshly loaded document and returns the document to
// save. Returning changed=false skips the write.
type MutateFunc func(doc annotation.Document) (next annotation.Document, changed bool, err error)

type FileStore struct {
	path   string
	mu     sync.Mutex
	lock   *flock.Flock
	schema *jsonschema.Schema
	logger *slog.Logger
}

// New prepares a store for the document at path. The file itself is created on first save.
func New(path string, logger *slog.Logger) (*FileStore, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid store path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	schema, err := documentValidator()
	if err != nil {
		return nil, fmt.Errorf("compile document schema: %w", err)
	}

	return &FileStore{
		path:   absPath,
		lock:   flock.New(absPath + lockSuffix),
		schema: schema,
		logger: logger,
	}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

// Load reads the document. A missing file is an empty document.
func (s *FileStore) Load() (annotation.Document, error) {
	return s.load()
}

// Save replaces the document, serialized with the same critical section as Mutate.
func (s *FileStore) Save(ctx context.Context, doc annotation.Document) error {
	return s.Mutate(ctx, func(annotation.Document) (annotation.Document, bool, error) {
		return doc, true, nil
	})
}

// Mutate runs load, fn, save as one unit with respect to every other Mutate
// on this store, in this process or another one sharing the lock file.
func (s *FileStore) Mutate(ctx context.Context, fn MutateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire store lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquire store lock: %s is held", s.lock.Path())
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil && s.logger != nil {
			s.logger.Warn("failed to release store lock", "path", s.lock.Path(), "error", err)
		}
	}()

	doc, err := s.load()
	if err != nil {
		return err
	}

	next, changed, err := fn(doc)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	return s.save(next)
}

// Backup writes doc next to the store as <name>.bak and returns its path.
func (s *FileStore) Backup(doc annotation.Document) (string, error) {
	backupPath := s.path + backupSuffix
	if err := writeDocument(backupPath, doc); err != nil {
		return "", &PersistError{Path: backupPath, Err: err}
	}
	if s.logger != nil {
		s.logger.Info("annotation store backed up", "path", backupPath, "entries", doc.Len())
	}
	return backupPath, nil
}

func (s *FileStore) load() (annotation.Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return annotation.Document{}, nil
		}
		return annotation.Document{}, fmt.Errorf("read annotation store: %w", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return annotation.Document{}, &CorruptError{Path: s.path, Err: err}
	}
	if err := s.schema.Validate(inst); err != nil {
		return annotation.Document{}, &CorruptError{Path: s.path, Err: err}
	}

	var doc annotation.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return annotation.Document{}, &CorruptError{Path: s.path, Err: err}
	}
	return doc, nil
}

func (s *FileStore) save(doc annotation.Document) error {
	if err := writeDocument(s.path, doc); err != nil {
		return &PersistError{Path: s.path, Err: err}
	}
	if s.logger != nil {
		s.logger.Debug("annotation store saved", "path", s.path, "entries", doc.Len())
	}
	return nil
}

func writeDocument(path string, doc annotation.Document) error {
	data, err := json.MarshalIndent(doc, "", indent)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(data))
}
