package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/genera/compass/internal/catalog"
	"github.com/genera/compass/internal/model"
)

// Record is one exported row: the profile followed by every answer in
// canonical item order
type Record struct {
	Profile model.Profile
	Values  []int
}

// NewRecord lays responses out in the catalog's canonical order
func NewRecord(profile model.Profile, responses model.ResponseSet, c *catalog.Catalog) Record {
	ids := c.ItemIDs()
	values := make([]int, len(ids))
	for i, id := range ids {
		values[i] = responses[id]
	}
	return Record{Profile: profile, Values: values}
}

// Header returns the column names matching Record.Strings
func Header(c *catalog.Catalog) []string {
	return append(append([]string(nil), model.ProfileColumns...), c.ItemIDs()...)
}

// Strings renders the row for text formats
func (r Record) Strings() []string {
	row := r.Profile.Fields()
	for _, v := range r.Values {
		row = append(row, strconv.Itoa(v))
	}
	return row
}

// Cells renders the row for the Sheets API; answers stay numeric
func (r Record) Cells() []interface{} {
	fields := r.Profile.Fields()
	cells := make([]interface{}, 0, len(fields)+len(r.Values))
	for _, f := range fields {
		cells = append(cells, f)
	}
	for _, v := range r.Values {
		cells = append(cells, v)
	}
	return cells
}

// ParseRecord reads a row written by Strings back into a profile and a
// response set keyed by item id
func ParseRecord(row []string, c *catalog.Catalog) (model.Profile, model.ResponseSet, error) {
	profileLen := len(model.ProfileColumns)
	ids := c.ItemIDs()

	if len(row) != profileLen+len(ids) {
		return model.Profile{}, nil, fmt.Errorf("%w: row has %d columns, want %d", model.ErrValidation, len(row), profileLen+len(ids))
	}

	responses := make(model.ResponseSet, len(ids))
	for i, id := range ids {
		raw := strings.TrimSpace(row[profileLen+i])
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return model.Profile{}, nil, fmt.Errorf("%w: item %s: %q is not an integer", model.ErrValidation, id, raw)
		}
		responses[id] = v
	}

	return model.ProfileFromFields(row[:profileLen]), responses, nil
}

// IsHeader reports whether row is the header the CSV exporter writes for c.
// Every cell must match, so a respondent nicknamed "nickname" is still data.
func IsHeader(row []string, c *catalog.Catalog) bool {
	header := Header(c)
	if len(row) != len(header) {
		return false
	}
	for i, cell := range row {
		if strings.TrimSpace(cell) != header[i] {
			return false
		}
	}
	return true
}
