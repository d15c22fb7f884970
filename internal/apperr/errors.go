// Package apperr defines the error taxonomy shared across the pipeline.
package apperr

import "errors"

var (
	// ErrValidation marks malformed input: a locator that does not parse,
	// an invalid config value, a rejected value object.
	ErrValidation = errors.New("validation failed")

	// ErrFileNotFound marks an absent source document.
	ErrFileNotFound = errors.New("file not found")

	// Collaborator fetch failures. These are recovered per link by the
	// bundler; everything else propagates.
	ErrNetwork       = errors.New("local api unreachable")
	ErrAuth          = errors.New("local api rejected credentials")
	ErrAssetNotFound = errors.New("asset not found")
	ErrProtocol      = errors.New("malformed local api response")
)

// IsFetchFailure reports whether err wraps one of the collaborator fetch
// errors. The bundler loop absorbs exactly these; fatal I/O errors must not
// be swallowed alongside them.
func IsFetchFailure(err error) bool {
	return errors.Is(err, ErrNetwork) ||
		errors.Is(err, ErrAuth) ||
		errors.Is(err, ErrAssetNotFound) ||
		errors.Is(err, ErrProtocol)
}
