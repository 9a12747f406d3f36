package chat

import (
	"fmt"
	"math"
	"strings"

	"github.com/futig/foodsafety-backend/internal/entity"
)

const passageSeparator = "\n\n---\n\n"

const instructionFrame = `You are a food safety compliance assistant for restaurant operators in %s.
Answer only from the county regulation passages below. Do not rely on outside knowledge.

Rules:
1. Cite every regulatory statement in the form **[Document Name, Page N]** using the document and page shown in the passage header. When a passage has no page, cite the closest page you can justify or omit the claim.
2. If the passages do not cover the question, say plainly that you cannot find relevant information in the available documents, or that the documents do not directly address it.
3. Never invent documents, page numbers or temperatures.
4. When the user shares a photo, describe the visible conditions that relate to the cited requirements and say what cannot be judged from the image.
5. Keep answers short and practical. Finish with the corrective action the operator should take, if any.

COUNTY REGULATION PASSAGES:

%s`

const emptyContextBlock = `No relevant passages were found in the county documents for this question.
Tell the user that you cannot find relevant information about this in the available documents and suggest contacting the county health department. Do not provide citations.`

// BuildSystemPrompt renders ranked passages inside the instruction frame.
func BuildSystemPrompt(county string, results []entity.ScoredResult) string {
	return fmt.Sprintf(instructionFrame, county, FormatContext(results))
}

// FormatContext renders each passage under a labelled header, most relevant first.
func FormatContext(results []entity.ScoredResult) string {
	if len(results) == 0 {
		return emptyContextBlock
	}

	blocks := make([]string, 0, len(results))
	for _, r := range results {
		page := "N/A"
		if r.Page != nil {
			page = fmt.Sprintf("%d", *r.Page)
		}
		header := fmt.Sprintf("[Source: %s | Page: %s | County: %s | Relevance: %d%%]",
			r.Source, page, r.County, int(math.Round(r.Score*100)))
		blocks = append(blocks, header+"\n"+strings.TrimSpace(r.Text))
	}
	return strings.Join(blocks, passageSeparator)
}

// ContextQuality grades how well the retrieved passages cover the question.
func ContextQuality(results []entity.ScoredResult) entity.ContextQuality {
	if len(results) == 0 {
		return entity.ContextQualityNone
	}

	top := results[0].Score
	for _, r := range results[1:] {
		top = math.Max(top, r.Score)
	}

	switch {
	case len(results) >= 5 && top >= 0.7:
		return entity.ContextQualityHigh
	case len(results) >= 3 && top >= 0.5:
		return entity.ContextQualityMedium
	default:
		return entity.ContextQualityLow
	}
}
