package retrieval

import "strings"

// imageProbes cover the inspection areas a photo of a food establishment usually shows.
var imageProbes = []string{
	"equipment maintenance repair and good working condition requirements",
	"physical facilities floors walls ceilings cleanability and repair",
	"plumbing system handwashing sinks backflow and drainage requirements",
	"sanitation cleaning frequency and pest control requirements",
	"food-contact surfaces cleaning sanitizing and condition standards",
}

// BuildQueryVariants expands one user turn into the retrieval probes issued against the corpus.
func BuildQueryVariants(text string, hasImage bool) []string {
	text = strings.TrimSpace(text)

	if hasImage {
		variants := make([]string, 0, len(imageProbes)+1)
		variants = append(variants, imageProbes...)
		if text != "" {
			variants = append(variants, text)
		}
		return variants
	}

	if text == "" {
		return nil
	}

	return []string{
		text,
		text + " requirements regulations",
		text + " violations standards",
	}
}
