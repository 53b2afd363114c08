package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var ErrEmptyKey = errors.New("key cannot be empty")

// Store is a minimal persistent key-value store
type Store interface {
	// Get returns the value for key and whether it was present
	Get(key string) (string, bool)

	// Set persists value under key
	Set(key, value string) error
}

// FileStore implements Store as one JSON object file
type FileStore struct {
	path string
	mu   sync.Mutex
}

// DefaultFileName is the file FileStore writes inside its directory
const DefaultFileName = "identity.json"

// NewFileStore creates a file-backed store in dir
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create identity directory: %w", err)
	}

	return &FileStore{
		path: filepath.Join(dir, DefaultFileName),
	}, nil
}

// Path returns the backing file path
func (fs *FileStore) Path() string {
	return fs.path
}

// Get reads key from the file. A missing or unreadable file reads as empty.
func (fs *FileStore) Get(key string) (string, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	values, err := fs.load()
	if err != nil {
		return "", false
	}
	v, ok := values[key]
	return v, ok
}

// Set writes key into the file, keeping any other keys
func (fs *FileStore) Set(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	values, err := fs.load()
	if err != nil {
		// Corrupt file: start over rather than refuse to persist
		values = make(map[string]string)
	}
	values[key] = value

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal identity data: %w", err)
	}

	if err := os.WriteFile(fs.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write identity file: %w", err)
	}

	return nil
}

// load reads the whole file; a missing file is an empty map
func (fs *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("failed to read identity file: %w", err)
	}

	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to unmarshal identity data: %w", err)
	}
	return values, nil
}

// MemoryStore implements Store in memory
type MemoryStore struct {
	values map[string]string
	mu     sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (ms *MemoryStore) Get(key string) (string, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	v, ok := ms.values[key]
	return v, ok
}

func (ms *MemoryStore) Set(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.values[key] = value
	return nil
}
