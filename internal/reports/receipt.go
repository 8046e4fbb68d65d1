package reports

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"github.com/fdg312/incident-hub/internal/capture"
	"github.com/fdg312/incident-hub/internal/geo"
	"github.com/fdg312/incident-hub/internal/reportdraft"
)

// ReceiptGenerator renders the PDF confirmation of a submitted report.
type ReceiptGenerator struct {
	fontName string
}

// NewReceiptGenerator uses the core Arial font; text is mapped to cp1252.
func NewReceiptGenerator() *ReceiptGenerator {
	return &ReceiptGenerator{fontName: "Arial"}
}

// Render produces the receipt for rec.
func (g *ReceiptGenerator) Render(rec reportdraft.Record) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(rec.SubmittedAt)
	pdf.SetTitle("Incident report "+rec.ID, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 16)
	pdf.Cell(0, 10, "Incident Report Receipt")
	pdf.Ln(12)

	pdf.SetFont(g.fontName, "", 10)
	g.field(pdf, tr, "Report ID", rec.ID)
	g.field(pdf, tr, "Submitted", rec.SubmittedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	g.field(pdf, tr, "Status", string(rec.Status))
	if rec.Location != nil {
		g.field(pdf, tr, "Location", geo.FormatLocation(rec.Location))
	} else {
		g.field(pdf, tr, "Location", "Not available")
	}
	pdf.Ln(6)

	pdf.SetFont(g.fontName, "B", 13)
	pdf.MultiCell(0, 7, tr(rec.Title), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont(g.fontName, "", 10)
	pdf.MultiCell(0, 5, tr(rec.Description), "", "L", false)
	pdf.Ln(6)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Photos (%d)", len(rec.Photos)))
	pdf.Ln(9)

	g.drawPhotoTable(pdf, tr, rec.Photos)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return buf.Bytes(), nil
}

func (g *ReceiptGenerator) field(pdf *gofpdf.Fpdf, tr func(string) string, label, value string) {
	pdf.SetFont(g.fontName, "B", 10)
	pdf.CellFormat(30, 6, tr(label+":"), "", 0, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)
	pdf.CellFormat(0, 6, tr(value), "", 1, "L", false, 0, "")
}

func (g *ReceiptGenerator) drawPhotoTable(pdf *gofpdf.Fpdf, tr func(string) string, photos []reportdraft.Photo) {
	widths := []float64{10, 80, 35, 30, 35}
	headers := []string{"#", "File", "Dimensions", "Size", "Geotagged"}

	pdf.SetFont(g.fontName, "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(g.fontName, "", 9)
	for i, p := range photos {
		name := p.URI
		if p.FileName != nil && *p.FileName != "" {
			name = *p.FileName
		}
		if len(name) > 45 {
			name = "..." + name[len(name)-42:]
		}

		geotagged := "no"
		if p.Location != nil {
			geotagged = "yes"
		}

		row := []string{
			strconv.Itoa(i + 1),
			tr(name),
			fmt.Sprintf("%dx%d", p.Width, p.Height),
			capture.FormatFileSize(p.SizeBytes),
			geotagged,
		}
		for j, cell := range row {
			align := "L"
			if j != 1 {
				align = "C"
			}
			pdf.CellFormat(widths[j], 6, cell, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
}
