// Package settings persists the archive settings and hands out immutable
// snapshots of them.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/starford/notearchiver/internal/apperr"
	"github.com/starford/notearchiver/internal/archive"
	"github.com/starford/notearchiver/internal/storage"
)

// Store loads and saves persisted settings.
type Store interface {
	// Load returns the persisted settings merged over archive.Defaults.
	Load() (archive.Settings, error)
	// Save persists s verbatim.
	Save(s archive.Settings) error
}

// FileStore keeps settings in a YAML file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the YAML file at path. The file is
// created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the settings file location.
func (s *FileStore) Path() string { return s.path }

// Load reads the settings file. A missing file yields the defaults.
func (s *FileStore) Load() (archive.Settings, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return archive.Defaults(), nil
	}
	if err != nil {
		return archive.Settings{}, fmt.Errorf("settings: read %s: %w", s.path, err)
	}
	return Decode(data)
}

// Save writes s atomically.
func (s *FileStore) Save(st archive.Settings) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("settings: mkdir: %w", err)
	}
	if err := storage.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("settings: save: %w", err)
	}
	return nil
}

// Decode merges a YAML settings document over the defaults field by field,
// normalizes the folder name and validates the result.
func Decode(data []byte) (archive.Settings, error) {
	merged := archive.Defaults()
	if err := yaml.Unmarshal(data, &merged); err != nil {
		return archive.Settings{}, fmt.Errorf("%w: settings: parse: %v", apperr.ErrInvalidConfiguration, err)
	}
	merged = merged.Normalized()
	if err := merged.Validate(); err != nil {
		return archive.Settings{}, err
	}
	return merged, nil
}
