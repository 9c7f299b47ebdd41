package model

import "errors"

// Error kinds shared by every package. Concrete errors wrap one of these so
// callers can branch with errors.Is.
var (
	// ErrConfiguration marks a bad catalog, label table or config; fatal at startup.
	ErrConfiguration = errors.New("configuration error")

	// ErrValidation marks an incomplete or malformed response set; scoring is rejected.
	ErrValidation = errors.New("validation error")

	// ErrExport marks a failed best-effort export; never affects the result.
	ErrExport = errors.New("export error")
)
