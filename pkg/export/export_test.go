package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Class Report",
		Headers: []string{"Name", "Average"},
		Rows: []map[string]string{
			{"Name": "João Silva", "Average": "7.60"},
			{"Name": "Maria", "Average": "8.50"},
		},
		Summary: []SummaryLine{{Label: "Class average", Value: "8.05"}},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	reader := csv.NewReader(bytes.NewReader(out))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"Name", "Average"}, records[0])
	assert.Equal(t, []string{"João Silva", "7.60"}, records[1])
	assert.Equal(t, []string{"Class average", "8.05"}, records[3])
}

func TestExportersRequireHeaders(t *testing.T) {
	renderers := []Renderer{NewCSVExporter(), NewPDFExporter(), NewXLSXExporter()}
	for _, r := range renderers {
		_, err := r.Render(Dataset{})
		assert.Error(t, err, r.Extension())
	}
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(xlsxDataSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Name", "Average"}, rows[1])
	assert.Equal(t, "Maria", rows[3][0])

	summary, err := f.GetCellValue(xlsxSummarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "8.05", summary)
}
