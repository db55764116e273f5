package api

import (
	"github.com/starford/notearchiver/internal/archive"
	"github.com/starford/notearchiver/internal/archiveservice"
	"github.com/starford/notearchiver/internal/models"
	"github.com/starford/notearchiver/internal/settings"
)

// ArchiveRequest is the request body for archiving a note.
type ArchiveRequest struct {
	Path string `json:"path" example:"Projects/todo.md" validate:"required"`
}

// ArchiveResponse is returned after a note was moved.
type ArchiveResponse struct {
	Source         string   `json:"source" example:"Projects/todo.md" validate:"required"`
	Destination    string   `json:"destination" example:"Archive/2024/05-May/Projects/todo.md" validate:"required"`
	CreatedFolders []string `json:"created_folders"`
	Message        string   `json:"message" example:"Projects/todo.md moved to Archive/2024/05-May/Projects/todo.md" validate:"required"`
}

// PreviewResponse is the destination a note would be archived to.
type PreviewResponse struct {
	Path        string `json:"path" example:"Projects/todo.md" validate:"required"`
	Destination string `json:"destination" example:"Archive/2024/Projects/todo.md" validate:"required"`
}

// NoteListResponse wraps paginated archivable notes.
type NoteListResponse struct {
	Notes []models.Note `json:"notes" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// SettingsResponse is the archive settings payload (aliased from the domain layer).
type SettingsResponse = archive.Settings

// UpdateSettingsRequest is a partial settings update; omitted fields keep their value.
type UpdateSettingsRequest = settings.Patch

// FolderStatusResponse describes the configured archive folder.
type FolderStatusResponse = archiveservice.FolderStatus

// partialMoveResponse is the 500 body when the note ended up in both places.
type partialMoveResponse struct {
	Error       string `json:"error" validate:"required"`
	Code        string `json:"code" example:"partial_move"`
	Warning     string `json:"warning" validate:"required"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
}
