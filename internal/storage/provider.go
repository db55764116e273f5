// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/notearchiver/internal/models"

// Kind classifies what occupies a vault path.
type Kind int

const (
	KindAbsent Kind = iota
	KindFile
	KindFolder
	// KindOther covers sockets, devices and anything else that is neither a
	// plain file nor a folder.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindFile:
		return "file"
	case KindFolder:
		return "folder"
	default:
		return "other"
	}
}

// Provider is the interface for vault file operations. All paths are
// relative to the vault root and use forward slashes.
type Provider interface {
	// List returns metadata for every regular .md file under dir.
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Delete removes the file at path.
	Delete(path string) error
	// Stat reports what occupies path without following a final symlink. A
	// missing path is KindAbsent, not an error.
	Stat(path string) (Kind, error)
	// CreateFolder creates a single folder. The parent must exist. An
	// existing entry yields an error wrapping fs.ErrExist.
	CreateFolder(path string) error
	// Copy duplicates the file at src to dst, including permission bits and
	// modification time. It never overwrites: an existing dst yields an
	// error wrapping fs.ErrExist.
	Copy(src, dst string) error
}
