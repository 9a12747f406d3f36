package retrieval

import "strings"

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunker splits documents into overlapping, sentence-aware spans.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
		if overlap >= size {
			overlap = size / 5
		}
	}
	return &Chunker{size: size, overlap: overlap}
}

func (c *Chunker) Split(text string) []string {
	return ChunkText(text, c.size, c.overlap)
}

// ChunkText walks text in windows of chunkSize characters. A window that does not reach the end of
// the text is cut after its last period or newline when that break lies past the window midpoint.
// Consecutive chunks share overlap characters. Returned chunks are trimmed and never empty.
func ChunkText(text string, chunkSize, overlap int) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 || chunkSize <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}

	var chunks []string
	start := 0
	for start < n {
		end := start + chunkSize
		if end >= n {
			end = n
		} else if brk := lastBreak(runes[start:end]); brk > chunkSize/2 {
			end = start + brk + 1
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end == n {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// lastBreak returns the index of the later of the last '.' and the last '\n' in window, or -1.
func lastBreak(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] == '.' || window[i] == '\n' {
			return i
		}
	}
	return -1
}

// WordCount counts whitespace separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
