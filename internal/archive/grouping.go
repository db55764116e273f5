package archive

import (
	"fmt"
	"strings"

	"github.com/starford/notearchiver/internal/apperr"
)

// Grouping controls how archived notes are bucketed by date.
type Grouping string

const (
	NoGrouping Grouping = "NoGrouping"
	Year       Grouping = "Year"
	Month      Grouping = "Month"
)

// Groupings lists the accepted values in presentation order.
var Groupings = []Grouping{NoGrouping, Year, Month}

// Label is the human-readable description shown in settings surfaces.
func (g Grouping) Label() string {
	switch g {
	case NoGrouping:
		return "Don't group my files"
	case Year:
		return "Group by year file is archived"
	case Month:
		return "Group by year and month file is archived"
	default:
		return string(g)
	}
}

// Valid reports whether g is one of the enumerated groupings.
func (g Grouping) Valid() bool {
	for _, v := range Groupings {
		if g == v {
			return true
		}
	}
	return false
}

// ParseGrouping accepts only the exact enumerated names; nothing is coerced.
func ParseGrouping(s string) (Grouping, error) {
	g := Grouping(s)
	if !g.Valid() {
		names := make([]string, len(Groupings))
		for i, v := range Groupings {
			names[i] = string(v)
		}
		return "", fmt.Errorf("%w: unable to parse grouping from value %q (want one of %s)",
			apperr.ErrInvalidConfiguration, s, strings.Join(names, ", "))
	}
	return g, nil
}
