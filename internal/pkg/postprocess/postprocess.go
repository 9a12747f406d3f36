package postprocess

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/futig/foodsafety-backend/internal/entity"
)

const (
	MaxResponseLength = 50000
	TruncationMarker  = "\n\n[Response truncated due to length]"

	WarningUncitedClaim = "response makes regulatory claims without citations"
	WarningTruncated    = "response truncated"
	WarningSanitized    = "unsafe markup removed from response"
)

var (
	scriptBlockRe  = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	iframeBlockRe  = regexp.MustCompile(`(?is)<iframe\b[^>]*>.*?</iframe\s*>`)
	danglingTagRe  = regexp.MustCompile(`(?i)</?(?:script|iframe)\b[^>]*>`)
	jsURIRe        = regexp.MustCompile(`(?i)javascript\s*:`)
	eventHandlerRe = regexp.MustCompile(`(?i)\s+on[a-z]+\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]+)`)

	// **[Food Code 2022, Page 45]** or **[Food Code 2022, Pages 45-47, 50]**
	citationRe = regexp.MustCompile(`\*\*\[([^,\]]+),\s*Pages?\s+([\d\s,\-–]+)\]\*\*`)

	regulatoryClaimRe = regexp.MustCompile(`(?i)violat|requir|\bmust\b|\bshall\b|prohibit|standard`)
	disclaimerRe      = regexp.MustCompile(`(?i)cannot find|can't find|could not find|couldn't find|do not directly address|does not directly address`)
)

// Result is the validated model output.
type Result struct {
	CleanText string
	Citations []entity.Citation
	Warnings  []string
}

// Validate sanitizes raw model output, bounds its length, extracts citations and flags uncited claims.
// It fails only when there is no text to return.
func Validate(text, county string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("%w: empty response", entity.ErrGenerativeProvider)
	}

	var res Result

	clean := Sanitize(text)
	if clean != text {
		res.Warnings = append(res.Warnings, WarningSanitized)
	}

	if truncated, ok := Truncate(clean, MaxResponseLength); ok {
		clean = truncated
		res.Warnings = append(res.Warnings, WarningTruncated)
	}

	res.CleanText = clean
	res.Citations = ExtractCitations(clean, county)

	if len(res.Citations) == 0 && regulatoryClaimRe.MatchString(clean) && !disclaimerRe.MatchString(clean) {
		res.Warnings = append(res.Warnings, WarningUncitedClaim)
	}

	return res, nil
}

// Sanitize strips script and iframe elements, javascript: URIs and inline event handlers.
func Sanitize(text string) string {
	text = scriptBlockRe.ReplaceAllString(text, "")
	text = iframeBlockRe.ReplaceAllString(text, "")
	text = danglingTagRe.ReplaceAllString(text, "")
	text = jsURIRe.ReplaceAllString(text, "")
	text = eventHandlerRe.ReplaceAllString(text, "")
	return text
}

// Truncate cuts text to max runes including the marker. The bool reports whether text was cut.
func Truncate(text string, max int) (string, bool) {
	runes := []rune(text)
	if len(runes) <= max {
		return text, false
	}
	keep := max - len([]rune(TruncationMarker))
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + TruncationMarker, true
}

// ExtractCitations returns every citation marker in text, in order of appearance.
func ExtractCitations(text, county string) []entity.Citation {
	matches := citationRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	citations := make([]entity.Citation, 0, len(matches))
	for _, m := range matches {
		citations = append(citations, entity.Citation{
			Document: strings.TrimSpace(m[1]),
			Pages:    strings.Trim(strings.TrimSpace(m[2]), ","),
			County:   county,
		})
	}
	return citations
}

// StripCitations removes citation markers. Used when no passages backed the answer.
func StripCitations(text string) string {
	stripped := citationRe.ReplaceAllString(text, "")
	return strings.ReplaceAll(stripped, " .", ".")
}
