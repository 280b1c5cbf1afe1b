package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfMargin    = 10.0
	headerHeight = 8.0
	rowHeight    = 7.0
)

// Document is a titled table rendered onto one or more PDF pages.
type Document struct {
	Title    string
	Subtitle string
	Data     Dataset
}

// WeekGrid is a period by day matrix. Cells[i][j] holds the text for RowLabels[i] and Columns[j].
type WeekGrid struct {
	Title     string
	Subtitle  string
	Columns   []string
	RowLabels []string
	Cells     [][]string
}

// PDFExporter renders datasets into tabular PDFs.
type PDFExporter struct {
	landscape bool
}

// NewPDFExporter constructs a portrait PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// NewLandscapePDFExporter constructs an exporter for wide tables such as weekly grids.
func NewLandscapePDFExporter() *PDFExporter {
	return &PDFExporter{landscape: true}
}

func (e *PDFExporter) newPDF() *gofpdf.Fpdf {
	orientation := "P"
	if e.landscape {
		orientation = "L"
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(pdfMargin, 15, pdfMargin)
	pdf.SetAutoPageBreak(false, 15)
	return pdf
}

func writeHeading(pdf *gofpdf.Fpdf, title, subtitle string) {
	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
	}
	if subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, subtitle, "", 1, "C", false, 0, "")
	}
	if title != "" || subtitle != "" {
		pdf.Ln(4)
	}
}

// Render creates a PDF document with a heading and a table body. The header row is repeated on
// every page.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	headers := doc.Data.Headers
	if len(headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := e.newPDF()
	pageWidth, pageHeight := pdf.GetPageSize()
	colWidth := (pageWidth - 2*pdfMargin) / float64(len(headers))

	drawHeader := func() {
		pdf.SetFont("Arial", "B", 10)
		for _, header := range headers {
			pdf.CellFormat(colWidth, headerHeight, header, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}

	pdf.AddPage()
	writeHeading(pdf, doc.Title, doc.Subtitle)
	drawHeader()
	for _, row := range doc.Data.Rows {
		if pdf.GetY()+rowHeight > pageHeight-15 {
			pdf.AddPage()
			drawHeader()
		}
		for _, header := range headers {
			pdf.CellFormat(colWidth, rowHeight, row[header], "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
	return output(pdf)
}

// RenderGrid draws a weekly timetable: one column per day and one row per period.
func (e *PDFExporter) RenderGrid(grid WeekGrid) ([]byte, error) {
	if len(grid.Columns) == 0 || len(grid.RowLabels) == 0 {
		return nil, fmt.Errorf("grid requires columns and rows")
	}
	pdf := e.newPDF()
	pageWidth, _ := pdf.GetPageSize()
	labelWidth := 18.0
	colWidth := (pageWidth - 2*pdfMargin - labelWidth) / float64(len(grid.Columns))
	cellHeight := 14.0

	pdf.AddPage()
	writeHeading(pdf, grid.Title, grid.Subtitle)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(labelWidth, headerHeight, "", "1", 0, "C", false, 0, "")
	for _, column := range grid.Columns {
		pdf.CellFormat(colWidth, headerHeight, column, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	for i, label := range grid.RowLabels {
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(labelWidth, cellHeight, label, "1", 0, "C", false, 0, "")
		pdf.SetFont("Arial", "", 8)
		for j := range grid.Columns {
			text := ""
			if i < len(grid.Cells) && j < len(grid.Cells[i]) {
				text = grid.Cells[i][j]
			}
			pdf.CellFormat(colWidth, cellHeight, text, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}
	return output(pdf)
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
