package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/genera/compass/internal/model"
)

// CSVExporter appends rows to a local CSV file, writing the header when it
// creates the file
type CSVExporter struct {
	path   string
	header []string
	mu     sync.Mutex
}

// NewCSVExporter creates an exporter for path
func NewCSVExporter(path string, header []string) *CSVExporter {
	return &CSVExporter{path: path, header: header}
}

func (e *CSVExporter) Name() string        { return model.ExportCSV }
func (e *CSVExporter) Destination() string { return e.path }

// Append writes rec as one line
func (e *CSVExporter) Append(ctx context.Context, rec Record) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if dir := filepath.Dir(e.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	f, err := os.OpenFile(e.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", e.path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", e.path, closeErr)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", e.path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 && len(e.header) > 0 {
		if err := w.Write(e.header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := w.Write(rec.Strings()); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	w.Flush()
	return w.Error()
}
