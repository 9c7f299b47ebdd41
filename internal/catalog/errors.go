package catalog

import (
	"fmt"
	"strings"

	"github.com/genera/compass/internal/model"
)

// MalformedCatalogError collects every problem found in a catalog definition
type MalformedCatalogError struct {
	Catalog  string
	Problems []string
}

func (e *MalformedCatalogError) Error() string {
	if e == nil {
		return ""
	}
	name := e.Catalog
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Sprintf("%s: malformed catalog %s: %s", model.ErrConfiguration.Error(), name, strings.Join(e.Problems, "; "))
}

func (e *MalformedCatalogError) Unwrap() error { return model.ErrConfiguration }
