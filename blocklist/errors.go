package blocklist

import "github.com/AdguardTeam/golibs/errors"

const (
	// ErrListNotFound is returned when a named list has no document.
	ErrListNotFound errors.Error = "block list not found"

	// ErrInvalidListName is returned for names that can't address a list
	// document, such as names containing path separators.
	ErrInvalidListName errors.Error = "invalid block list name"

	// ErrListTooLarge is returned when a list document exceeds the size
	// limit of the loader.
	ErrListTooLarge errors.Error = "block list too large"

	// ErrMalformedList is returned when a list document isn't a JSON array of
	// rule objects with a url-filter trigger.
	ErrMalformedList errors.Error = "malformed block list"

	// ErrBadPattern is returned when a url-filter or unless-domain entry
	// can't be compiled.
	ErrBadPattern errors.Error = "bad rule pattern"
)

// ListError is returned by Compile when a single named list fails to load or
// compile.
type ListError struct {
	Err  error
	Name string
}

// Error implements the error interface for *ListError.
func (e *ListError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ListError) Unwrap() error {
	return e.Err
}
