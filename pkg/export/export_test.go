package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterPadsShortRows(t *testing.T) {
	data := Dataset{
		Headers: []string{"Day", "Period", "Class"},
		Rows: [][]string{
			{"MONDAY", "1", "X-A"},
			{"TUESDAY", "2"},
		},
	}
	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.Equal(t, "Day,Period,Class\nMONDAY,1,X-A\nTUESDAY,2,\n", string(out))
}

func TestCSVExporterRejectsWideRows(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{Headers: []string{"Day"}, Rows: [][]string{{"MONDAY", "extra"}}})
	require.Error(t, err)

	_, err = NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRenderGrid(t *testing.T) {
	grid := Grid{
		Title:     "Teacher timetable",
		Subtitle:  "Budi Santoso",
		Corner:    "Period",
		Columns:   []string{"Monday", "Tuesday"},
		RowLabels: []string{"1", "2"},
		Cells: [][]string{
			{"X-A\nMathematics", ""},
			{"", "XI-B\nPhysics"},
		},
	}
	out, err := NewPDFExporter().RenderGrid(grid)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterRejectsRaggedGrid(t *testing.T) {
	_, err := NewPDFExporter().RenderGrid(Grid{
		Columns:   []string{"Monday"},
		RowLabels: []string{"1", "2"},
		Cells:     [][]string{{"a"}},
	})
	require.Error(t, err)
}
