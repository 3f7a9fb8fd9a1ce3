package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

// Document is a printable report made of titled sections
type Document struct {
	Title    string
	Subtitle string
	Sections []Section
	// Footer is printed at the bottom of every page next to the page number
	Footer string
}

// Section is a heading followed by key/value lines, an optional table and an
// optional closing note
type Section struct {
	Heading string
	Fields  []Field
	Table   *Table
	Note    string
}

// Field is a labelled value
type Field struct {
	Label string
	Value string
}

// Table is a grid with a header row. BlankRows appends empty rows for
// handwritten entries.
type Table struct {
	Headers   []string
	Widths    []float64
	Rows      [][]string
	BlankRows int
}

// Renderer turns documents into PDF bytes
type Renderer struct {
	author string
	now    func() time.Time
}

// NewRenderer creates a renderer that stamps documents with author
func NewRenderer(author string) *Renderer {
	return &Renderer{author: author, now: time.Now}
}

const (
	pageWidth   = 210.0
	marginLeft  = 15.0
	marginRight = 15.0
	lineHeight  = 6.0
	rowHeight   = 7.0
)

// Render lays out doc on A4 pages and returns the PDF
func (r *Renderer) Render(doc Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginLeft, 15, marginRight)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(doc.Title, true)
	pdf.SetAuthor(r.author, true)
	pdf.SetCreationDate(r.now())

	// core fonts are cp1252; accented Spanish text needs translating
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(110, 110, 110)
		text := fmt.Sprintf("%s  %d/{nb}", doc.Footer, pdf.PageNo())
		pdf.CellFormat(0, 10, tr(text), "", 0, "C", false, 0, "")
	})
	pdf.AliasNbPages("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(30, 64, 175)
	pdf.CellFormat(0, 10, tr(doc.Title), "", 1, "C", false, 0, "")
	if doc.Subtitle != "" {
		pdf.SetFont("Helvetica", "", 11)
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(0, 7, tr(doc.Subtitle), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	for _, s := range doc.Sections {
		r.renderSection(pdf, tr, s)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) renderSection(pdf *fpdf.Fpdf, tr func(string) string, s Section) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(13, 71, 161)
	pdf.CellFormat(0, 9, tr(s.Heading), "B", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetTextColor(0, 0, 0)
	for _, f := range s.Fields {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(55, lineHeight, tr(f.Label+":"), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, lineHeight, tr(f.Value), "", "L", false)
	}

	if s.Table != nil {
		if len(s.Fields) > 0 {
			pdf.Ln(2)
		}
		renderTable(pdf, tr, s.Table)
	}

	if s.Note != "" {
		pdf.Ln(1)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, lineHeight, tr(s.Note), "", "L", false)
	}
	pdf.Ln(5)
}

func renderTable(pdf *fpdf.Fpdf, tr func(string) string, t *Table) {
	widths := columnWidths(t)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(33, 150, 243)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range t.Headers {
		pdf.CellFormat(widths[i], rowHeight, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0, 0, 0)
	for _, row := range t.Rows {
		for i := range t.Headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			pdf.CellFormat(widths[i], rowHeight, tr(cell), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}
	for n := 0; n < t.BlankRows; n++ {
		for i := range t.Headers {
			pdf.CellFormat(widths[i], rowHeight+2, "", "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

// columnWidths uses the table's widths when they cover every column and
// splits the printable width evenly otherwise
func columnWidths(t *Table) []float64 {
	if len(t.Widths) == len(t.Headers) {
		return t.Widths
	}
	if len(t.Headers) == 0 {
		return nil
	}
	w := (pageWidth - marginLeft - marginRight) / float64(len(t.Headers))
	widths := make([]float64, len(t.Headers))
	for i := range widths {
		widths[i] = w
	}
	return widths
}
