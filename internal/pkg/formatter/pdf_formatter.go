package formatter

import (
	"bytes"
	"os"

	"github.com/futig/foodsafety-backend/internal/entity"
	"github.com/jung-kurt/gofpdf"
)

const (
	pdfContentType   = "application/pdf"
	pdfFileExtension = ".pdf"

	// pdfFontName is the internal name used by gofpdf
	// for the UTF-8 capable font.
	pdfFontName = "DejaVuSans"

	// In Docker runtime fonts are copied next to the binary.
	pdfFontRuntimePath = "ttf/DejaVuSans.ttf"

	// Source-relative path (useful when running from repo root with `go run`).
	pdfFontSourcePath = "internal/pkg/formatter/ttf/DejaVuSans.ttf"
)

type PDFFormatter struct{}

func NewPDFFormatter() *PDFFormatter {
	return &PDFFormatter{}
}

// resolveFontPath looks for DejaVuSans in the runtime layout, then the source layout.
func resolveFontPath() string {
	if _, err := os.Stat(pdfFontRuntimePath); err == nil {
		return pdfFontRuntimePath
	}
	if _, err := os.Stat(pdfFontSourcePath); err == nil {
		return pdfFontSourcePath
	}
	return ""
}

func (mf *PDFFormatter) Format(answer *entity.ExportRequest) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	// Core fonts are cp1252; the translator maps symbols such as ° onto it.
	fontName := "Arial"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if fontPath := resolveFontPath(); fontPath != "" {
		pdf.AddUTF8Font(pdfFontName, "", fontPath)
		pdf.AddUTF8Font(pdfFontName, "B", fontPath)
		pdf.AddUTF8Font(pdfFontName, "I", fontPath)
		fontName = pdfFontName
		tr = func(s string) string { return s }
	}

	pdf.SetFont(fontName, "B", 18)
	pdf.Cell(0, 10, tr(baseTitle))
	pdf.Ln(12)

	pdf.SetFont(fontName, "", 11)
	_, lineHeight := pdf.GetFontSize()
	if answer.County != "" {
		pdf.MultiCell(0, lineHeight*1.5, tr(countyLabel+": "+answer.County), "", "", false)
	}
	if answer.Question != "" {
		pdf.SetFont(fontName, "B", 12)
		pdf.MultiCell(0, lineHeight*1.5, tr(questionLabel), "", "", false)
		pdf.SetFont(fontName, "", 11)
		pdf.MultiCell(0, lineHeight*1.5, tr(answer.Question), "", "", false)
	}
	pdf.Ln(4)

	pdf.SetFont(fontName, "", 12)
	_, lineHeight = pdf.GetFontSize()
	pdf.MultiCell(0, lineHeight*1.5, tr(plainText(answer.Message)), "", "", false)

	if len(answer.Citations) > 0 {
		pdf.Ln(4)
		pdf.SetFont(fontName, "B", 12)
		pdf.Cell(0, 8, tr(sourcesTitle))
		pdf.Ln(8)
		pdf.SetFont(fontName, "", 11)
		for _, c := range answer.Citations {
			pdf.MultiCell(0, lineHeight*1.3, tr("- "+citationLine(c)), "", "", false)
		}
	}

	pdf.Ln(6)
	pdf.SetFont(fontName, "I", 9)
	pdf.MultiCell(0, 5, tr(disclaimer), "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (mf *PDFFormatter) ContentType() string {
	return pdfContentType
}

func (mf *PDFFormatter) FileExtension() string {
	return pdfFileExtension
}
