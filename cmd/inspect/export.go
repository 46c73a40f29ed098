package main

import (
	"fmt"
	"io"
	"strconv"

	"traceforge/domain"

	"github.com/jung-kurt/gofpdf"
)

// exportPDF writes the messages as a printable transcript, oldest first.
// Core fonts are cp1252, so bodies go through the unicode translator.
func exportPDF(w io.Writer, title string, messages []domain.Message) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 12, tr(title))
	pdf.Ln(14)

	for _, m := range messages {
		header := fmt.Sprintf("#%s  %s  %s", strconv.FormatUint(m.Seq, 10),
			m.CreatedAt.Format("2006-01-02 15:04:05"), m.Author)
		if to, ok := m.Recipient(); ok {
			header += "  to @" + to
		}
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, tr(header), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.MultiCell(0, 6, tr(m.Body), "", "L", false)
		pdf.Ln(2)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
