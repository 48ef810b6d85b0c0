package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxErrorBody bounds how much of a provider response is kept in an error.
const maxErrorBody = 256

var (
	// ErrMissingData means no CacheKey could be derived (place or country empty).
	ErrMissingData = errors.New("missing place or country")

	// ErrNotFound means every candidate and provider was tried without an accepted match.
	ErrNotFound = errors.New("no acceptable match")
)

// ProviderHTTPError is a non-2xx response from a geocoding provider.
type ProviderHTTPError struct {
	Provider   string
	StatusCode int
	Body       string
}

// NewProviderHTTPError builds a ProviderHTTPError, truncating body.
func NewProviderHTTPError(provider string, status int, body []byte) *ProviderHTTPError {
	b := strings.TrimSpace(string(body))
	if len(b) > maxErrorBody {
		n := maxErrorBody
		for n > 0 && !utf8.RuneStart(b[n]) {
			n--
		}
		b = b[:n] + "…"
	}
	return &ProviderHTTPError{Provider: provider, StatusCode: status, Body: b}
}

func (e *ProviderHTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: http status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: http status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// InputFormatError means the input table is missing or lacks required columns.
type InputFormatError struct {
	Path    string
	Missing []string
	Err     error
}

func (e *InputFormatError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("input %s: missing required columns: %s", e.Path, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("input %s: %v", e.Path, e.Err)
}

func (e *InputFormatError) Unwrap() error { return e.Err }
