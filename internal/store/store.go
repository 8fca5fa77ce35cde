// Package store provides the persistent key-value store the rest of the
// daemon reads and writes through. Each call is independently atomic;
// multi-key sequences are not.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store is the key-value persistence contract. Values are opaque bytes;
// callers serialize their own records.
type Store interface {
	// Get returns the value for key, or found=false if the key is absent.
	Get(key string) (value []byte, found bool, err error)
	// Set writes or overwrites the value for key.
	Set(key string, value []byte) error
	// Remove deletes the key. Removing an absent key is not an error.
	Remove(key string) error
	// Close releases any underlying resources.
	Close() error
}

// FileStore keeps all keys in a single JSON file, rewritten on every mutation.
type FileStore struct {
	path string
	mu   sync.RWMutex
	data map[string]json.RawMessage
}

// OpenFile loads (or initializes) a file-backed store at path.
func OpenFile(path string) (*FileStore, error) {
	fs := &FileStore{
		path: path,
		data: make(map[string]json.RawMessage),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fs, nil
		}
		return nil, fmt.Errorf("failed to read store: %w", err)
	}

	if err := json.Unmarshal(raw, &fs.data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal store: %w", err)
	}

	return fs, nil
}

// Get returns the value for key.
func (fs *FileStore) Get(key string) ([]byte, bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	v, ok := fs.data[key]
	if !ok {
		return nil, false, nil
	}
	// Copy so callers cannot mutate the cached value.
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Set writes the value for key and persists the file.
func (fs *FileStore) Set(key string, value []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	fs.data[key] = v
	return fs.flushLocked()
}

// Remove deletes the key and persists the file.
func (fs *FileStore) Remove(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, ok := fs.data[key]; !ok {
		return nil
	}
	delete(fs.data, key)
	return fs.flushLocked()
}

// Close is a no-op for the file store; every mutation already flushed.
func (fs *FileStore) Close() error {
	return nil
}

func (fs *FileStore) flushLocked() error {
	if fs.path == "" {
		return fmt.Errorf("store path is empty, cannot save")
	}

	if err := os.MkdirAll(filepath.Dir(fs.path), 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	// Compact marshal: indenting would reformat the stored raw values and
	// break the byte-for-byte Get/Set contract across a reopen.
	data, err := json.Marshal(fs.data)
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	if err := os.WriteFile(fs.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}

	return nil
}

// Ensure FileStore implements Store at compile time.
var _ Store = (*FileStore)(nil)
