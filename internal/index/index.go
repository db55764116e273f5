package index

import "github.com/starford/notearchiver/internal/models"

// NoteIndex defines the note index operations used by the archive service.
type NoteIndex interface {
	UpsertNote(n models.Note) error
	DeleteNote(path string) error
	RenameNote(oldPath, newPath string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	ListNotes(q ListQuery) ([]models.Note, int, error)
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
