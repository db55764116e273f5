package archive

import (
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notearchiver/internal/apperr"
)

// Default values applied beneath any persisted settings.
const (
	DefaultVersion           = "0.1.0"
	DefaultArchiveFolderName = "Archive"
	DefaultGrouping          = NoGrouping
)

// Settings is an immutable snapshot of the archive configuration. It is a
// value type: one copy is taken when an archive operation begins.
type Settings struct {
	Version           string   `yaml:"version" json:"version"`
	ArchiveFolderName string   `yaml:"archiveFolderName" json:"archiveFolderName"`
	Grouping          Grouping `yaml:"grouping" json:"grouping"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		Version:           DefaultVersion,
		ArchiveFolderName: DefaultArchiveFolderName,
		Grouping:          DefaultGrouping,
	}
}

// Normalized returns a copy with ArchiveFolderName in vault path form.
func (s Settings) Normalized() Settings {
	s.ArchiveFolderName = NormalizePath(s.ArchiveFolderName)
	return s
}

// Validate checks the snapshot. Every failure wraps
// apperr.ErrInvalidConfiguration.
func (s Settings) Validate() error {
	err := validation.ValidateStruct(&s,
		validation.Field(&s.ArchiveFolderName,
			validation.Required.Error("archive folder name is required"),
			validation.By(insideVault),
		),
		validation.Field(&s.Grouping,
			validation.Required,
			validation.In(NoGrouping, Year, Month).Error("must be one of NoGrouping, Year, Month"),
		),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidConfiguration, err)
	}
	return nil
}

func insideVault(value interface{}) error {
	name, _ := value.(string)
	n := NormalizePath(name)
	switch {
	case escapesVault(n):
		return errors.New("must stay inside the vault")
	case n == "":
		return errors.New("must not be the vault root")
	}
	return nil
}

// Subfolder is the folder archived notes go to at time now.
func (s Settings) Subfolder(now time.Time) string {
	return Subfolder(s.ArchiveFolderName, s.Grouping, now)
}

// Destination resolves the archive path of source at time now.
func (s Settings) Destination(source string, now time.Time) string {
	return Resolve(s.ArchiveFolderName, s.Grouping, source, now)
}
