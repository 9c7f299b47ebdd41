// Package export appends raw response rows to an external store. Every
// export is best-effort: failures are reported, never propagated into the
// scoring result.
package export

import (
	"context"
	"fmt"

	"github.com/genera/compass/internal/catalog"
	"github.com/genera/compass/internal/model"
)

// Exporter appends one record to a destination
type Exporter interface {
	// Name returns the backend name (sheets, csv, none)
	Name() string

	// Destination identifies the target; it keys the rate limiter
	Destination() string

	// Append writes the record; it must honour ctx cancellation
	Append(ctx context.Context, rec Record) error
}

// Nop discards every record
type Nop struct{}

func (Nop) Name() string                               { return model.ExportNone }
func (Nop) Destination() string                        { return "" }
func (Nop) Append(ctx context.Context, _ Record) error { return nil }

// New builds the exporter selected by cfg
func New(ctx context.Context, cfg model.ExportConfig, c *catalog.Catalog) (Exporter, error) {
	switch cfg.Backend {
	case "", model.ExportNone:
		return Nop{}, nil
	case model.ExportCSV:
		return NewCSVExporter(cfg.CSVPath, Header(c)), nil
	case model.ExportSheets:
		exp, err := NewSheetsExporter(ctx, cfg.SpreadsheetID, cfg.Sheet, SheetsOptions(cfg)...)
		if err != nil {
			return nil, fmt.Errorf("%w: sheets exporter: %v", model.ErrConfiguration, err)
		}
		return exp, nil
	default:
		return nil, fmt.Errorf("%w: unknown export backend %q", model.ErrConfiguration, cfg.Backend)
	}
}
