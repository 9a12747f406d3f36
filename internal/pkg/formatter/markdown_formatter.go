package formatter

import (
	"bytes"
	"fmt"

	"github.com/futig/foodsafety-backend/internal/entity"
)

const (
	markdownContentType   = "text/markdown; charset=utf-8"
	markdownFileExtension = ".md"
)

type MarkdownFormatter struct{}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

func (mf *MarkdownFormatter) Format(answer *entity.ExportRequest) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", baseTitle)
	if answer.County != "" {
		fmt.Fprintf(&buf, "**%s:** %s\n\n", countyLabel, answer.County)
	}
	if answer.Question != "" {
		fmt.Fprintf(&buf, "## %s\n\n%s\n\n", questionLabel, answer.Question)
	}
	fmt.Fprintf(&buf, "%s\n", answer.Message)

	if len(answer.Citations) > 0 {
		fmt.Fprintf(&buf, "\n## %s\n\n", sourcesTitle)
		for _, c := range answer.Citations {
			fmt.Fprintf(&buf, "- %s\n", citationLine(c))
		}
	}

	fmt.Fprintf(&buf, "\n---\n\n_%s_\n", disclaimer)
	return buf.Bytes(), nil
}

func (mf *MarkdownFormatter) ContentType() string {
	return markdownContentType
}

func (mf *MarkdownFormatter) FileExtension() string {
	return markdownFileExtension
}
