// Package storage persists the currency rate document.
// Supports two backends: an atomically replaced file shared across processes,
// and an in-memory document for tests and embedded use.
package storage

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"unitconvert/internal/errors"
	"unitconvert/internal/logging"
)

// Backend is a storage backend type
type Backend string

const (
	BackendFile   Backend = "file"
	BackendMemory Backend = "memory"
)

// DocumentStore holds a single document and its modification time.
type DocumentStore interface {
	// Stat reports the modification time, or exists=false when nothing is stored
	Stat() (modTime time.Time, exists bool, err error)

	// Read returns the document and its modification time
	Read() ([]byte, time.Time, error)

	// Write replaces the document atomically
	Write(data []byte) error
}

// FileStore keeps the document in one file. Writes go to a uniquely named
// temporary file in the same directory which is then renamed over the target,
// so readers in any process see either the old or the new document.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewFileStore creates a file store for path. The directory is created on
// first write.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	if path == "" {
		return nil, errors.Input("cache path must not be empty")
	}
	if logger == nil {
		logger = logging.Named("storage")
	}
	return &FileStore{
		path:   filepath.Clean(path),
		logger: logger.With(zap.String("path", path)),
	}, nil
}

// Path returns the document location
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Stat() (time.Time, bool, error) {
	info, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, errors.Cache("failed to stat cache", err)
	}
	if info.IsDir() {
		return time.Time{}, false, errors.Newf(errors.TypeCache, "cache path %s is a directory", s.path)
	}
	return info.ModTime(), true, nil
}

func (s *FileStore) Read() ([]byte, time.Time, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, time.Time{}, errors.Cache("failed to open cache", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, time.Time{}, errors.Cache("failed to stat cache", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, time.Time{}, errors.Cache("failed to read cache", err)
	}
	return data, info.ModTime(), nil
}

func (s *FileStore) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Cache("failed to create cache directory", err)
	}

	// Write atomically using temp file
	tempPath := filepath.Join(dir, "."+filepath.Base(s.path)+"."+uuid.NewString()+".tmp")
	if err := writeFile(tempPath, data); err != nil {
		os.Remove(tempPath)
		return errors.Cache("failed to write cache", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return errors.Cache("failed to replace cache", err)
	}

	s.logger.Debug("cache document replaced", zap.Int("bytes", len(data)))
	return nil
}

func writeFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// MemoryStore is an in-memory storage backend (for testing)
type MemoryStore struct {
	data    []byte
	modTime time.Time
	exists  bool
	now     func() time.Time
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty memory store. now stamps writes; nil means time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{now: now}
}

// Put stores data with an explicit modification time
func (s *MemoryStore) Put(data []byte, modTime time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	s.modTime = modTime
	s.exists = true
}

func (s *MemoryStore) Stat() (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modTime, s.exists, nil
}

func (s *MemoryStore) Read() ([]byte, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.exists {
		return nil, time.Time{}, errors.NotFound("cache document", "memory")
	}
	return append([]byte(nil), s.data...), s.modTime, nil
}

func (s *MemoryStore) Write(data []byte) error {
	s.Put(data, s.now())
	return nil
}

// StoreFactory creates stores by backend type
func StoreFactory(backend Backend, path string, logger *zap.Logger) (DocumentStore, error) {
	switch backend {
	case BackendFile:
		store, err := NewFileStore(path, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendMemory:
		return NewMemoryStore(nil), nil
	default:
		return nil, errors.Newf(errors.TypeConfig, "unsupported backend: %s", backend)
	}
}

// Ensure interfaces are implemented
var _ DocumentStore = (*FileStore)(nil)
var _ DocumentStore = (*MemoryStore)(nil)
