package export

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/genera/compass/internal/model"
)

// SheetsExporter appends rows to a Google Sheet tab
type SheetsExporter struct {
	svc           *sheets.Service
	spreadsheetID string
	sheet         string
}

// SheetsOptions derives client options from the export configuration.
// Without a credentials file the client falls back to application default credentials.
func SheetsOptions(cfg model.ExportConfig) []option.ClientOption {
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	return opts
}

// NewSheetsExporter creates a Sheets client for spreadsheetID
func NewSheetsExporter(ctx context.Context, spreadsheetID, sheet string, opts ...option.ClientOption) (*SheetsExporter, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if sheet == "" {
		sheet = "Sheet1"
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsExporter{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}, nil
}

func (e *SheetsExporter) Name() string { return model.ExportSheets }

// Destination is the spreadsheet and tab
func (e *SheetsExporter) Destination() string {
	return e.spreadsheetID + "/" + e.sheet
}

// Append adds rec below the last row of the tab, values stored as given
func (e *SheetsExporter) Append(ctx context.Context, rec Record) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{rec.Cells()}}

	_, err := e.svc.Spreadsheets.Values.
		Append(e.spreadsheetID, appendRange(e.sheet), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("values.append: %w", err)
	}
	return nil
}

// appendRange quotes the tab name so any title is a valid A1 range
func appendRange(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!A1"
}
