package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// JoinSheet is the content of a printable classroom join sheet.
type JoinSheet struct {
	GroupName string
	JoinURL   string
	Token     string
	ExpiresAt time.Time
	Location  *time.Location
}

// PDFExporter renders join sheets into single page PDFs.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderJoinSheet lays out the group name, join link and expiry for printing.
func (e *PDFExporter) RenderJoinSheet(sheet JoinSheet) ([]byte, error) {
	if sheet.JoinURL == "" {
		return nil, fmt.Errorf("join sheet requires a join url")
	}
	loc := sheet.Location
	if loc == nil {
		loc = time.UTC
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.SetTitle(fmt.Sprintf("Join %s", sheet.GroupName), true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 22)
	pdf.MultiCell(0, 12, tr(sheet.GroupName), "", "C", false)
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 12)
	pdf.MultiCell(0, 7, "Open the link below while signed in as a student to join this group.", "", "C", false)
	pdf.Ln(6)

	pdf.SetFont("Courier", "B", 13)
	pdf.MultiCell(0, 8, sheet.JoinURL, "1", "C", false)
	pdf.Ln(10)

	if sheet.Token != "" {
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 7, "Join code", "", 1, "C", false, 0, "")
		pdf.SetFont("Courier", "B", 18)
		pdf.CellFormat(0, 12, groupToken(sheet.Token), "", 1, "C", false, 0, "")
		pdf.Ln(8)
	}

	pdf.SetFont("Arial", "I", 10)
	expiry := sheet.ExpiresAt.In(loc).Format("02 Jan 2006 15:04 MST")
	pdf.CellFormat(0, 7, fmt.Sprintf("This code expires at %s.", expiry), "", 1, "C", false, 0, "")

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("layout pdf: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// groupToken splits a token into blocks of four so it can be read aloud.
func groupToken(token string) string {
	token = strings.ToUpper(token)
	var parts []string
	for len(token) > 4 {
		parts = append(parts, token[:4])
		token = token[4:]
	}
	if token != "" {
		parts = append(parts, token)
	}
	return strings.Join(parts, " ")
}
