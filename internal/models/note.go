// Package models defines the vault domain types shared across packages.
package models

import "time"

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Note is an indexed vault note as presented to archive surfaces.
type Note struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Notice kinds published to user-facing surfaces.
const (
	NoticeArchiveCompleted = "archive.completed"
	NoticeArchiveFailed    = "archive.failed"
	NoticeSettingsUpdated  = "settings.updated"
)

// Notice is a single user-facing notification.
type Notice struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Message     string    `json:"message"`
	Source      string    `json:"source,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Error       string    `json:"error,omitempty"`
	At          time.Time `json:"at"`
}
