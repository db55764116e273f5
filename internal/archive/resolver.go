package archive

import (
	"fmt"
	"path"
	"time"
)

// Subfolder computes the archive bucket for grouping g at time now:
//
//	NoGrouping  Archive
//	Year        Archive/2024
//	Month       Archive/2024/05-May
//
// Month names are English. g is assumed valid; settings are validated where
// they are accepted.
func Subfolder(folder string, g Grouping, now time.Time) string {
	switch g {
	case Year:
		return NormalizePath(path.Join(folder, fmt.Sprintf("%04d", now.Year())))
	case Month:
		bucket := fmt.Sprintf("%02d-%s", int(now.Month()), now.Month().String())
		return NormalizePath(path.Join(folder, fmt.Sprintf("%04d", now.Year()), bucket))
	default:
		return NormalizePath(folder)
	}
}

// Resolve maps a vault-relative source path to its archive destination. The
// source keeps its own folder structure underneath the bucket:
// "Projects/todo.md" becomes "Archive/Projects/todo.md".
func Resolve(folder string, g Grouping, source string, now time.Time) string {
	return NormalizePath(path.Join(Subfolder(folder, g, now), NormalizePath(source)))
}
