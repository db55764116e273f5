package settings

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/starford/notearchiver/internal/archive"
)

// Patch is a partial settings update. Nil fields are left unchanged.
type Patch struct {
	ArchiveFolderName *string `json:"archiveFolderName,omitempty"`
	Grouping          *string `json:"grouping,omitempty"`
}

// Manager owns the current settings. Readers get value snapshots; writers
// are serialized and publish a new snapshot only after it is persisted.
type Manager struct {
	store   Store
	mu      sync.Mutex
	current atomic.Pointer[archive.Settings]
}

// NewManager loads the persisted settings from store.
func NewManager(store Store) (*Manager, error) {
	s, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("settings: load: %w", err)
	}
	m := &Manager{store: store}
	m.current.Store(&s)
	return m, nil
}

// Snapshot returns the settings in effect right now.
func (m *Manager) Snapshot() archive.Settings {
	return *m.current.Load()
}

// Update applies p. The folder name is normalized and the grouping must be
// an exact enumerated name; an invalid patch changes neither memory nor disk.
func (m *Manager) Update(p Patch) (archive.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.Snapshot()
	if p.ArchiveFolderName != nil {
		next.ArchiveFolderName = archive.NormalizePath(*p.ArchiveFolderName)
	}
	if p.Grouping != nil {
		g, err := archive.ParseGrouping(*p.Grouping)
		if err != nil {
			return archive.Settings{}, err
		}
		next.Grouping = g
	}
	if err := next.Validate(); err != nil {
		return archive.Settings{}, err
	}
	if err := m.store.Save(next); err != nil {
		return archive.Settings{}, err
	}
	m.current.Store(&next)
	return next, nil
}

// Reload re-reads the store. Invalid persisted content is reported and the
// previous snapshot stays in effect.
func (m *Manager) Reload() (archive.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.store.Load()
	if err != nil {
		return m.Snapshot(), err
	}
	m.current.Store(&s)
	return s, nil
}
