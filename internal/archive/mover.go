package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/starford/notearchiver/internal/apperr"
	"github.com/starford/notearchiver/internal/storage"
)

// Tree is the subset of the vault store the mover needs.
// *storage.FS satisfies it.
type Tree interface {
	Stat(path string) (storage.Kind, error)
	CreateFolder(path string) error
	Copy(src, dst string) error
	Delete(path string) error
}

var _ Tree = (*storage.FS)(nil)

// Stage names a step of one archive operation.
type Stage int

const (
	StageIdle Stage = iota
	StageResolvingPath
	StageEnsuringFolder
	StageCopying
	StageDeleting
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageResolvingPath:
		return "resolving_path"
	case StageEnsuringFolder:
		return "ensuring_folder"
	case StageCopying:
		return "copying"
	case StageDeleting:
		return "deleting"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// StageError records the stage an archive operation failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("archive: %s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// Result describes a completed move.
type Result struct {
	Source      string   `json:"source"`
	Destination string   `json:"destination"`
	Created     []string `json:"created_folders,omitempty"`
}

// Message is the user-facing confirmation.
func (r *Result) Message() string {
	return fmt.Sprintf("%s moved to %s", r.Source, r.Destination)
}

// Mover moves a single note into the archive.
type Mover struct {
	tree   Tree
	logger *slog.Logger
}

// NewMover creates a mover over tree. A nil logger discards output.
func NewMover(tree Tree, logger *slog.Logger) *Mover {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Mover{tree: tree, logger: logger}
}

// Archive moves source under the archive subfolder described by settings at
// time now. Steps run strictly in sequence and stop at the first failure;
// ctx is only consulted before the first step.
func (m *Mover) Archive(ctx context.Context, settings Settings, source string, now time.Time) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageIdle, Err: err}
	}

	src, dst, err := m.resolve(settings, source, now)
	if err != nil {
		return nil, m.fail(StageResolvingPath, source, err)
	}
	log := m.logger.With(slog.String("path", src), slog.String("destination", dst))

	log.Debug("archive: ensuring folder")
	created, err := m.ensureFolder(dst)
	if err != nil {
		return nil, m.fail(StageEnsuringFolder, src, err)
	}

	log.Debug("archive: copying", slog.Int("created_folders", len(created)))
	if err := m.tree.Copy(src, dst); err != nil {
		if errors.Is(err, fs.ErrExist) {
			err = fmt.Errorf("%w: %s: %v", apperr.ErrDestinationAlreadyExists, dst, err)
		}
		return nil, m.fail(StageCopying, src, err)
	}

	log.Debug("archive: deleting source")
	if err := m.tree.Delete(src); err != nil {
		return nil, m.fail(StageDeleting, src, &apperr.PartialMoveError{Source: src, Destination: dst, Err: err})
	}

	log.Debug("archive: done")
	return &Result{Source: src, Destination: dst, Created: created}, nil
}

func (m *Mover) resolve(settings Settings, source string, now time.Time) (string, string, error) {
	settings = settings.Normalized()
	if err := settings.Validate(); err != nil {
		return "", "", err
	}

	src := NormalizePath(source)
	if src == "" || escapesVault(src) {
		return "", "", fmt.Errorf("%w: %q is not a vault path", apperr.ErrSourceNotFound, source)
	}
	kind, err := m.tree.Stat(src)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", apperr.ErrSourceNotFound, err)
	}
	if kind != storage.KindFile {
		return "", "", fmt.Errorf("%w: %s is %s", apperr.ErrSourceNotFound, src, kind)
	}

	return src, settings.Destination(src, now), nil
}

// ensureFolder guarantees every ancestor of dst is a folder. The whole chain
// is inspected before anything is created, so a conflict leaves the tree as
// it was.
func (m *Mover) ensureFolder(dst string) ([]string, error) {
	chain := ancestors(parentOf(dst))
	missing := make([]string, 0, len(chain))

	for _, dir := range chain {
		kind, err := m.tree.Stat(dir)
		if err != nil {
			return nil, err
		}
		switch kind {
		case storage.KindFolder:
		case storage.KindAbsent:
			missing = append(missing, dir)
		default:
			return nil, fmt.Errorf("%w: %s is a %s, not a folder", apperr.ErrDestinationPathConflict, dir, kind)
		}
	}

	kind, err := m.tree.Stat(dst)
	if err != nil {
		return nil, err
	}
	if kind != storage.KindAbsent {
		return nil, fmt.Errorf("%w: %s", apperr.ErrDestinationAlreadyExists, dst)
	}

	created := make([]string, 0, len(missing))
	for _, dir := range missing {
		err := m.tree.CreateFolder(dir)
		if err == nil {
			created = append(created, dir)
			continue
		}
		if !errors.Is(err, fs.ErrExist) {
			return created, err
		}
		// Someone else created it first; fine as long as it is a folder.
		kind, statErr := m.tree.Stat(dir)
		if statErr != nil {
			return created, statErr
		}
		if kind != storage.KindFolder {
			return created, fmt.Errorf("%w: %s is a %s, not a folder", apperr.ErrDestinationPathConflict, dir, kind)
		}
	}
	return created, nil
}

func (m *Mover) fail(stage Stage, source string, err error) error {
	m.logger.Debug("archive: failed",
		slog.String("path", source),
		slog.String("stage", stage.String()),
		slog.String("error", err.Error()))
	return &StageError{Stage: stage, Err: err}
}
