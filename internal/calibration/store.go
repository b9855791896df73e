package calibration

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// PlacementGroup and DefaultKey locate the active placement code.
	PlacementGroup = "placement"
	DefaultKey     = "default"
)

// Store is a small grouped key/value storage.
type Store interface {
	Read(group, key string) (string, error)
}

// FileStore keeps groups of key/value pairs in a YAML file:
//
//	placement:
//	  default: AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAACAPw
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path. The file is created on the
// first Write.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("calibration: storage path is empty")
	}
	return &FileStore{path: filepath.Clean(path)}, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) load() (map[string]map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading storage %s: %w", s.path, err)
	}
	groups := map[string]map[string]string{}
	if err := yaml.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("parsing storage %s: %w", s.path, err)
	}
	return groups, nil
}

// Read returns the value stored under group/key, or "" when absent.
func (s *FileStore) Read(group, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups, err := s.load()
	if err != nil {
		return "", err
	}
	return groups[group][key], nil
}

// Write stores value under group/key, keeping the other entries.
func (s *FileStore) Write(group, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups, err := s.load()
	if err != nil {
		return err
	}
	if groups[group] == nil {
		groups[group] = map[string]string{}
	}
	groups[group][key] = value

	data, err := yaml.Marshal(groups)
	if err != nil {
		return fmt.Errorf("marshaling storage: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating storage dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing storage %s: %w", s.path, err)
	}
	return nil
}

// MapStore is an in-memory Store.
type MapStore map[string]map[string]string

func (m MapStore) Read(group, key string) (string, error) {
	return m[group][key], nil
}

func (m MapStore) Write(group, key, value string) error {
	if m[group] == nil {
		m[group] = make(map[string]string)
	}
	m[group][key] = value
	return nil
}
