// Package archiveservice coordinates settings, the archive mover, the note
// index and user notifications. Every adapter (CLI, HTTP, MCP) goes through it.
package archiveservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/notearchiver/internal/apperr"
	"github.com/starford/notearchiver/internal/archive"
	"github.com/starford/notearchiver/internal/index"
	"github.com/starford/notearchiver/internal/models"
	"github.com/starford/notearchiver/internal/settings"
	"github.com/starford/notearchiver/internal/storage"
)

// Notifier receives user-facing notices.
type Notifier interface {
	Notify(n models.Notice)
}

type discardNotifier struct{}

func (discardNotifier) Notify(models.Notice) {}

// Folder states reported by FolderStatus.
const (
	FolderMissing = "missing"
	FolderIsFile  = "file"
	FolderExists  = "folder"
)

// FolderStatus describes what currently occupies the archive folder.
type FolderStatus struct {
	Folder  string `json:"folder"`
	State   string `json:"state"`
	Message string `json:"message"`
}

// Service coordinates archive operations.
type Service struct {
	store    storage.Provider
	db       index.NoteIndex
	settings *settings.Manager
	mover    *archive.Mover
	notifier Notifier
	now      func() time.Time
	logger   *slog.Logger
	reserved map[string]bool
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets where notices go. The default drops them.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithReserved marks vault-relative files that must never be archived, such
// as a settings file or index database kept inside the vault.
func WithReserved(paths ...string) Option {
	return func(s *Service) {
		for _, p := range paths {
			if p = archive.NormalizePath(p); p != "" {
				s.reserved[p] = true
			}
		}
	}
}

// NewService creates a new archive service.
func NewService(store storage.Provider, db index.NoteIndex, mgr *settings.Manager, opts ...Option) *Service {
	s := &Service{
		store:    store,
		db:       db,
		settings: mgr,
		notifier: discardNotifier{},
		now:      time.Now,
		logger:   slog.New(slog.DiscardHandler),
		reserved: map[string]bool{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mover = archive.NewMover(store, s.logger)
	return s
}

// Archive moves the note at path into the archive using the settings in
// effect when the call starts. Exactly one notice is emitted.
func (s *Service) Archive(ctx context.Context, path string) (*archive.Result, error) {
	id := uuid.NewString()
	snap := s.settings.Snapshot()
	src := archive.NormalizePath(path)
	log := s.logger.With(slog.String("operation_id", id), slog.String("path", src))

	if err := s.checkNote(src); err != nil {
		s.reportFailure(log, id, src, err)
		return nil, err
	}
	if archive.Within(src, snap.ArchiveFolderName) {
		err := fmt.Errorf("%w: %s is inside %s", apperr.ErrAlreadyArchived, src, snap.ArchiveFolderName)
		s.reportFailure(log, id, src, err)
		return nil, err
	}

	res, err := s.mover.Archive(ctx, snap, src, s.now())
	if err != nil {
		var pm *apperr.PartialMoveError
		if errors.As(err, &pm) {
			s.reindex(log, pm.Destination)
		}
		s.reportFailure(log, id, src, err)
		return nil, err
	}

	if err := s.db.RenameNote(res.Source, res.Destination); err != nil {
		log.Warn("archive: index rename failed", slog.String("error", err.Error()))
	}

	log.Info("archive: completed",
		slog.String("destination", res.Destination),
		slog.Int("created_folders", len(res.Created)))
	s.notifier.Notify(models.Notice{
		ID:          id,
		Kind:        models.NoticeArchiveCompleted,
		Message:     res.Message(),
		Source:      res.Source,
		Destination: res.Destination,
		At:          s.now(),
	})
	return res, nil
}

// Preview returns where path would be archived right now, without side effects.
func (s *Service) Preview(_ context.Context, path string) (string, error) {
	snap := s.settings.Snapshot()
	if err := snap.Validate(); err != nil {
		return "", err
	}
	src := archive.NormalizePath(path)
	if src == "" {
		return "", fmt.Errorf("%w: path is required", apperr.ErrSourceNotFound)
	}
	if err := s.checkNote(src); err != nil {
		return "", err
	}
	if archive.Within(src, snap.ArchiveFolderName) {
		return "", fmt.Errorf("%w: %s is inside %s", apperr.ErrAlreadyArchived, src, snap.ArchiveFolderName)
	}
	return snap.Destination(src, s.now()), nil
}

// CanArchive reports whether path is offered for archiving: any visible vault
// file outside the archive folder.
func (s *Service) CanArchive(path string) bool {
	src := archive.NormalizePath(path)
	return src != "" && s.checkNote(src) == nil &&
		!archive.Within(src, s.settings.Snapshot().ArchiveFolderName)
}

// checkNote refuses hidden and reserved files. They never show up in the
// note listing either.
func (s *Service) checkNote(src string) error {
	if archive.Hidden(src) || s.reserved[src] {
		return fmt.Errorf("%w: %s is not a vault note", apperr.ErrSourceNotFound, src)
	}
	return nil
}

// ArchivableNotes refreshes the index from disk and lists notes outside the
// archive folder.
func (s *Service) ArchivableNotes(_ context.Context, query string, limit, offset int) ([]models.Note, int, error) {
	if err := index.Sync(s.db, s.store, s.logger); err != nil {
		return nil, 0, fmt.Errorf("archivable notes: sync: %w", err)
	}
	return s.db.ListNotes(index.ListQuery{
		Query:         query,
		ExcludeFolder: s.settings.Snapshot().ArchiveFolderName,
		Limit:         limit,
		Offset:        offset,
	})
}

// Settings returns the current settings snapshot.
func (s *Service) Settings() archive.Settings {
	return s.settings.Snapshot()
}

// UpdateSettings validates, persists and publishes a settings change.
func (s *Service) UpdateSettings(_ context.Context, p settings.Patch) (archive.Settings, error) {
	updated, err := s.settings.Update(p)
	if err != nil {
		s.logger.Warn("settings: update rejected", slog.String("error", err.Error()))
		return archive.Settings{}, err
	}
	s.SettingsChanged(updated)
	return updated, nil
}

// SettingsChanged announces settings that took effect outside UpdateSettings,
// e.g. an edit of the settings file picked up by the watcher.
func (s *Service) SettingsChanged(st archive.Settings) {
	s.logger.Info("settings: updated",
		slog.String("archive_folder", st.ArchiveFolderName),
		slog.String("grouping", string(st.Grouping)))
	s.notifier.Notify(models.Notice{
		ID:      uuid.NewString(),
		Kind:    models.NoticeSettingsUpdated,
		Message: fmt.Sprintf("Archiving to %s (%s)", st.ArchiveFolderName, st.Grouping.Label()),
		At:      s.now(),
	})
}

// FolderStatus inspects the configured archive folder.
func (s *Service) FolderStatus(_ context.Context) (FolderStatus, error) {
	folder := s.settings.Snapshot().ArchiveFolderName
	kind, err := s.store.Stat(folder)
	if err != nil {
		return FolderStatus{}, err
	}
	st := FolderStatus{Folder: folder}
	switch kind {
	case storage.KindAbsent:
		st.State = FolderMissing
		st.Message = "Folder not in vault, it will be created when you archive a note here"
	case storage.KindFolder:
		st.State = FolderExists
		st.Message = "Folder exists, all good"
	default:
		st.State = FolderIsFile
		st.Message = "File exists with this name, you can't archive anything until you change this"
	}
	return st, nil
}

func (s *Service) reindex(log *slog.Logger, path string) {
	data, err := s.store.Read(path)
	if err != nil {
		return
	}
	if cs, err := s.db.GetChecksum(path); err == nil && cs == storage.Checksum(data) {
		return
	}
	meta := models.NoteMetadata{Path: path, UpdatedAt: s.now()}
	if err := index.IndexFile(s.db, meta, data); err != nil {
		log.Warn("archive: index update failed", slog.String("error", err.Error()))
	}
}

func (s *Service) reportFailure(log *slog.Logger, id, src string, err error) {
	level := slog.LevelWarn
	if errors.Is(err, apperr.ErrPartialMove) {
		level = slog.LevelError
	}
	log.Log(context.Background(), level, "archive: failed", slog.String("error", err.Error()))

	n := models.Notice{
		ID:      id,
		Kind:    models.NoticeArchiveFailed,
		Message: FailureMessage(src, err),
		Source:  src,
		Error:   err.Error(),
		At:      s.now(),
	}
	var pm *apperr.PartialMoveError
	if errors.As(err, &pm) {
		n.Destination = pm.Destination
	}
	s.notifier.Notify(n)
}

// FailureMessage turns an archive error into the text shown to the user.
func FailureMessage(src string, err error) string {
	var pm *apperr.PartialMoveError
	switch {
	case errors.As(err, &pm):
		return fmt.Sprintf("%s was copied to %s but the original could not be removed; the note now exists in both places",
			pm.Source, pm.Destination)
	case errors.Is(err, apperr.ErrAlreadyArchived):
		return fmt.Sprintf("Could not archive %s: it is already in the archive folder", src)
	case errors.Is(err, apperr.ErrSourceNotFound):
		return fmt.Sprintf("Could not archive %s: the file does not exist", src)
	case errors.Is(err, apperr.ErrDestinationAlreadyExists):
		return fmt.Sprintf("Could not archive %s: a file already exists at the archive destination", src)
	case errors.Is(err, apperr.ErrDestinationPathConflict):
		return fmt.Sprintf("Could not archive %s: a file is in the way of the archive folder", src)
	case errors.Is(err, apperr.ErrInvalidConfiguration):
		return fmt.Sprintf("Could not archive %s: the archive settings are invalid", src)
	default:
		return fmt.Sprintf("Could not archive %s: %v", src, err)
	}
}
