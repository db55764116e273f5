// Package apperr defines the error taxonomy shared by the archive core and
// its adapters.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfiguration     = errors.New("invalid configuration")
	ErrSourceNotFound           = errors.New("source not found")
	ErrDestinationPathConflict  = errors.New("destination path conflict")
	ErrDestinationAlreadyExists = errors.New("destination already exists")
	ErrPartialMove              = errors.New("partial move")
	ErrAlreadyArchived          = errors.New("already archived")
)

// PartialMoveError reports a move whose copy succeeded but whose delete
// failed. Both Source and Destination exist afterwards.
type PartialMoveError struct {
	Source      string
	Destination string
	Err         error
}

func (e *PartialMoveError) Error() string {
	return fmt.Sprintf("partial move: %s copied to %s but the original could not be removed: %v",
		e.Source, e.Destination, e.Err)
}

func (e *PartialMoveError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrPartialMove) match.
func (e *PartialMoveError) Is(target error) bool { return target == ErrPartialMove }
