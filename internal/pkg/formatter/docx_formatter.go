package formatter

import (
	"bytes"
	"errors"
	"strings"

	"github.com/futig/foodsafety-backend/internal/entity"
	"github.com/futig/foodsafety-backend/internal/pkg/office"
	"github.com/unidoc/unioffice/document"
)

const (
	docxContentType   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	docxFileExtension = ".docx"
)

var errDocxSave = errors.New("docx export failed")

type DOCXFormatter struct{}

func NewDOCXFormatter() *DOCXFormatter {
	return &DOCXFormatter{}
}

func (mf *DOCXFormatter) Format(answer *entity.ExportRequest) ([]byte, error) {
	doc := document.New()
	defer doc.Close()

	heading(doc, "Heading1", baseTitle)

	if answer.County != "" {
		par := doc.AddParagraph()
		label := par.AddRun()
		label.Properties().SetBold(true)
		label.AddText(countyLabel + ": ")
		par.AddRun().AddText(answer.County)
	}

	if answer.Question != "" {
		heading(doc, "Heading2", questionLabel)
		doc.AddParagraph().AddRun().AddText(answer.Question)
	}

	doc.AddParagraph()
	for _, line := range strings.Split(plainText(answer.Message), "\n") {
		doc.AddParagraph().AddRun().AddText(line)
	}

	if len(answer.Citations) > 0 {
		heading(doc, "Heading2", sourcesTitle)
		for _, c := range answer.Citations {
			doc.AddParagraph().AddRun().AddText("• " + citationLine(c))
		}
	}

	doc.AddParagraph()
	note := doc.AddParagraph().AddRun()
	note.Properties().SetItalic(true)
	note.AddText(disclaimer)

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, office.WrapError("save docx", err, errDocxSave)
	}
	return buf.Bytes(), nil
}

func heading(doc *document.Document, style, text string) {
	par := doc.AddParagraph()
	par.SetStyle(style)
	par.AddRun().AddText(text)
}

func (mf *DOCXFormatter) ContentType() string {
	return docxContentType
}

func (mf *DOCXFormatter) FileExtension() string {
	return docxFileExtension
}
