package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidthLandscape = 277.0
	labelColumnWidth   = 22.0
	cellLineHeight     = 5.0
)

// PDFExporter renders timetable grids as landscape A4 documents.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderGrid draws the grid with one column per day and one row per period.
// Multi-line cell content is separated by "\n".
func (e *PDFExporter) RenderGrid(grid Grid) ([]byte, error) {
	if err := grid.validate(); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if grid.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 9, tr(grid.Title), "", 1, "C", false, 0, "")
	}
	if grid.Subtitle != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 6, tr(grid.Subtitle), "", 1, "C", false, 0, "")
	}
	pdf.Ln(3)

	colWidth := (pageWidthLandscape - labelColumnWidth) / float64(len(grid.Columns))

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(labelColumnWidth, 8, tr(grid.Corner), "1", 0, "C", true, 0, "")
	for _, column := range grid.Columns {
		pdf.CellFormat(colWidth, 8, tr(column), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for r, label := range grid.RowLabels {
		lines := 1
		for _, cell := range grid.Cells[r] {
			if n := len(strings.Split(cell, "\n")); n > lines {
				lines = n
			}
		}
		height := float64(lines)*cellLineHeight + 2
		x, y := pdf.GetXY()
		pdf.SetFont("Arial", "B", 8)
		pdf.CellFormat(labelColumnWidth, height, tr(label), "1", 0, "C", false, 0, "")
		pdf.SetFont("Arial", "", 8)
		for c, cell := range grid.Cells[r] {
			cx := x + labelColumnWidth + float64(c)*colWidth
			pdf.Rect(cx, y, colWidth, height, "D")
			pdf.SetXY(cx, y+1)
			pdf.MultiCell(colWidth, cellLineHeight, tr(cell), "", "C", false)
		}
		pdf.SetXY(x, y+height)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
