package export

import (
	"fmt"

	"github.com/genera/compass/internal/model"
)

// Error is a failed export after every allowed attempt
type Error struct {
	Backend     string
	Destination string
	Attempts    int
	Err         error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s append to %s failed after %d attempt(s): %v",
		model.ErrExport.Error(), e.Backend, e.Destination, e.Attempts, e.Err)
}

// Unwrap exposes both the export kind and the underlying cause
func (e *Error) Unwrap() []error { return []error{model.ErrExport, e.Err} }
