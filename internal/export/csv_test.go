package export

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporter_WritesHeaderOnce(t *testing.T) {
	c := compassCatalog(t)
	path := filepath.Join(t.TempDir(), "nested", "responses.csv")
	exp := NewCSVExporter(path, Header(c))

	rec := NewRecord(sampleProfile(), sampleResponses(c), c)
	require.NoError(t, exp.Append(context.Background(), rec))
	require.NoError(t, exp.Append(context.Background(), rec))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Header(c), rows[0])
	assert.Equal(t, rec.Strings(), rows[1])
	assert.Equal(t, rows[1], rows[2])

	assert.Equal(t, "csv", exp.Name())
	assert.Equal(t, path, exp.Destination())
}

func TestCSVExporter_CancelledContext(t *testing.T) {
	c := compassCatalog(t)
	path := filepath.Join(t.TempDir(), "responses.csv")
	exp := NewCSVExporter(path, Header(c))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, exp.Append(ctx, NewRecord(sampleProfile(), sampleResponses(c), c)))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
