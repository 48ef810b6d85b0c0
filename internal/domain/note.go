package domain

import "strings"

// Note records how an output record got (or failed to get) its coordinates.
type Note string

const (
	NoteCache       Note = "cache"
	NoteOverride    Note = "override"
	NoteNotFound    Note = "not_found"
	NoteMissingData Note = "missing_data"

	resolvedPrefix = "resolved:"
	errorPrefix    = "error:"
)

// NoteResolved is the note for a live match from the named provider.
func NoteResolved(provider string) Note {
	return Note(resolvedPrefix + provider)
}

// NoteError is the note for a per-record failure.
func NoteError(err error) Note {
	return Note(errorPrefix + err.Error())
}

// Kind collapses parameterized notes to a fixed vocabulary:
// cache, override, resolved, not_found, missing_data, error.
// Anything else is reported as "unknown".
func (n Note) Kind() string {
	switch {
	case n == NoteCache, n == NoteOverride, n == NoteNotFound, n == NoteMissingData:
		return string(n)
	case strings.HasPrefix(string(n), resolvedPrefix) && len(n) > len(resolvedPrefix):
		return "resolved"
	case strings.HasPrefix(string(n), errorPrefix):
		return "error"
	default:
		return "unknown"
	}
}

// HasCoordinates reports whether records with this note carry coordinates.
func (n Note) HasCoordinates() bool {
	switch n.Kind() {
	case "cache", "override", "resolved":
		return true
	default:
		return false
	}
}
