package report

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/go-pdf/fpdf"
)

// Core fonts are cp1252: the status marks and the infinity sign have no
// glyph there, so they fold to plain text before translation.
var pdfSymbols = strings.NewReplacer(
	"✓", "OK",
	"✗", "X",
	"⚠", "!",
	"∞", "inf",
	"–", "-",
	"—", "-",
)

var inlineMarks = strings.NewReplacer("**", "", "`", "")

// WritePDF renders a markdown note into a PDF document. The renderer is
// line-level: headings, pipe tables, bullets and paragraphs, which is all
// the notes emit.
func WritePDF(markdown, title string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 8, tr(fmt.Sprintf("Page %d/{nb}", pdf.PageNo())), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Arial", "", 11)

	w := &pdfWriter{pdf: pdf, tr: tr}
	w.render(CleanMarkdown(markdown))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}
	return buf.Bytes(), nil
}

// SavePDF renders the note and writes it to disk.
func SavePDF(markdown, title, path string) error {
	data, err := WritePDF(markdown, title)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

type pdfWriter struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (w *pdfWriter) text(s string) string {
	return w.tr(pdfSymbols.Replace(inlineMarks.Replace(s)))
}

func (w *pdfWriter) render(markdown string) {
	var table [][]string
	flushTable := func() {
		if len(table) > 0 {
			w.renderTable(table)
			table = nil
		}
	}

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "|") {
			if row := parseTableRow(trimmed); row != nil {
				table = append(table, row)
			}
			continue
		}
		flushTable()

		switch {
		case trimmed == "":
			w.pdf.Ln(2)
		case strings.HasPrefix(trimmed, "### "):
			w.heading(trimmed[4:], 11)
		case strings.HasPrefix(trimmed, "## "):
			w.heading(trimmed[3:], 13)
		case strings.HasPrefix(trimmed, "# "):
			w.heading(trimmed[2:], 16)
		case strings.HasPrefix(trimmed, "- "):
			w.bullet(trimmed[2:])
		default:
			w.paragraph(trimmed)
		}
	}
	flushTable()
}

// parseTableRow splits a pipe row into cells. Separator rows (| --- |)
// return nil.
func parseTableRow(line string) []string {
	inner := strings.Trim(line, "|")
	parts := strings.Split(inner, "|")
	row := make([]string, 0, len(parts))
	separator := true
	for _, p := range parts {
		cell := strings.TrimSpace(p)
		if strings.Trim(cell, "-: ") != "" {
			separator = false
		}
		row = append(row, cell)
	}
	if separator {
		return nil
	}
	return row
}

func (w *pdfWriter) heading(text string, size float64) {
	w.pdf.Ln(2)
	w.pdf.SetFont("Arial", "B", size)
	w.pdf.MultiCell(0, size*0.55, w.text(text), "", "L", false)
	w.pdf.Ln(1)
	w.pdf.SetFont("Arial", "", 11)
}

func (w *pdfWriter) bullet(text string) {
	w.pdf.SetX(14)
	w.pdf.MultiCell(0, 5, w.text("- "+text), "", "L", false)
}

func (w *pdfWriter) paragraph(text string) {
	w.pdf.MultiCell(0, 5, w.text(text), "", "L", false)
	w.pdf.Ln(1)
}

func (w *pdfWriter) renderTable(rows [][]string) {
	cols := len(rows[0])
	if cols == 0 {
		return
	}
	width := 190.0 / float64(cols)

	w.pdf.Ln(1)
	for i, row := range rows {
		if i == 0 {
			w.pdf.SetFont("Arial", "B", 9)
			w.pdf.SetFillColor(230, 230, 230)
		} else {
			w.pdf.SetFont("Arial", "", 9)
			w.pdf.SetFillColor(255, 255, 255)
		}
		for j := 0; j < cols; j++ {
			cell := ""
			if j < len(row) {
				cell = row[j]
			}
			ln := 0
			if j == cols-1 {
				ln = 1
			}
			w.pdf.CellFormat(width, 6, w.text(cell), "1", ln, "L", i == 0, 0, "")
		}
	}
	w.pdf.Ln(3)
	w.pdf.SetFont("Arial", "", 11)
}
