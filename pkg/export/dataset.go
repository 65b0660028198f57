package export

import "fmt"

// Dataset is a flat table: one header row followed by records.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
}

func (d Dataset) validate() error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("dataset requires at least one header")
	}
	for i, row := range d.Rows {
		if len(row) > len(d.Headers) {
			return fmt.Errorf("row %d has %d cells for %d headers", i, len(row), len(d.Headers))
		}
	}
	return nil
}

// Grid is a timetable matrix. Cells[r][c] is the content at RowLabels[r]
// and Columns[c]; empty strings render as blank cells.
type Grid struct {
	Title     string
	Subtitle  string
	Corner    string
	Columns   []string
	RowLabels []string
	Cells     [][]string
}

func (g Grid) validate() error {
	if len(g.Columns) == 0 || len(g.RowLabels) == 0 {
		return fmt.Errorf("grid requires columns and rows")
	}
	if len(g.Cells) != len(g.RowLabels) {
		return fmt.Errorf("grid has %d cell rows for %d labels", len(g.Cells), len(g.RowLabels))
	}
	for i, row := range g.Cells {
		if len(row) != len(g.Columns) {
			return fmt.Errorf("grid row %d has %d cells for %d columns", i, len(row), len(g.Columns))
		}
	}
	return nil
}
