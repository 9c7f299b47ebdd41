package score

import (
	"fmt"
	"strings"

	"github.com/genera/compass/internal/model"
)

// IncompleteResponseError means at least one catalog item was not answered
type IncompleteResponseError struct {
	Missing []string // Canonical order
}

func (e *IncompleteResponseError) Error() string {
	return fmt.Sprintf("%s: %d unanswered item(s): %s", model.ErrValidation.Error(), len(e.Missing), strings.Join(e.Missing, ", "))
}

func (e *IncompleteResponseError) Unwrap() error { return model.ErrValidation }

// UnknownItemError means the response set names items the catalog does not have
type UnknownItemError struct {
	Unknown []string // Lexical order
}

func (e *UnknownItemError) Error() string {
	return fmt.Sprintf("%s: unknown item id(s): %s", model.ErrValidation.Error(), strings.Join(e.Unknown, ", "))
}

func (e *UnknownItemError) Unwrap() error { return model.ErrValidation }

// OutOfScaleError means an answer lies outside the catalog scale
type OutOfScaleError struct {
	ItemID string
	Value  int
	Scale  model.Scale
}

func (e *OutOfScaleError) Error() string {
	return fmt.Sprintf("%s: item %s answered %d, scale is %d-%d", model.ErrValidation.Error(), e.ItemID, e.Value, e.Scale.Min, e.Scale.Max)
}

func (e *OutOfScaleError) Unwrap() error { return model.ErrValidation }
