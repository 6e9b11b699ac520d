package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"spots/internal/shared"
)

// DefaultFileName is used when no metadata file is configured
const DefaultFileName = ".metadata.json"

// JSONStore keeps resolved track metadata keyed by canonical link and
// persists it to an indented JSON file.
type JSONStore struct {
	mu      sync.RWMutex
	path    string
	objects map[string]shared.TrackMetadata
	dirty   bool
}

// New creates an empty store backed by path. Call Load to read existing data.
func New(path string) *JSONStore {
	return &JSONStore{
		path:    path,
		objects: make(map[string]shared.TrackMetadata),
	}
}

// Open creates a store and loads it best-effort. A missing or corrupt file
// leaves the store empty; the returned error is informational only.
func Open(path string) (*JSONStore, error) {
	s := New(path)
	return s, s.Load()
}

// Load merges the file contents into memory. On any failure the in-memory
// state is left untouched.
func (s *JSONStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read metadata file: %w", err)
	}

	var loaded map[string]shared.TrackMetadata
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("failed to parse metadata file %s: %w", s.path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for link, track := range loaded {
		if link == "" {
			continue
		}
		s.objects[link] = track
	}
	return nil
}

// Get returns the metadata stored under link
func (s *JSONStore) Get(link string) (shared.TrackMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	track, ok := s.objects[link]
	return track, ok
}

// Put stores track under its canonical link, replacing any previous record.
// Records without a link are ignored.
func (s *JSONStore) Put(track shared.TrackMetadata) {
	if track.Link == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[track.Link] = track
	s.dirty = true
}

// Len returns the number of stored records
func (s *JSONStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Flush writes the store to disk when it changed since the last flush. The
// file is written to a temporary sibling and renamed into place.
func (s *JSONStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	data, err := json.MarshalIndent(s.objects, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := shared.CreateDirIfNotExists(dir); err != nil {
			return fmt.Errorf("failed to create metadata directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace metadata file: %w", err)
	}

	s.dirty = false
	return nil
}
