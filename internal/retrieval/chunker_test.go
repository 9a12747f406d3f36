package retrieval

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkText_Empty(t *testing.T) {
	assert.Empty(t, ChunkText("", 100, 20))
	assert.Empty(t, ChunkText("   \n\t  ", 100, 20))
}

func TestChunkText_ShortTextIsOneChunk(t *testing.T) {
	chunks := ChunkText("  Hot holding must be at 135°F or above.  ", 1000, 200)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Hot holding must be at 135°F or above.", chunks[0])
}

func TestChunkText_CutsOnSentenceBoundaryPastMidpoint(t *testing.T) {
	sentence := "Food employees shall wash their hands before handling food. "
	text := strings.Repeat(sentence, 20)

	chunks := ChunkText(text, 200, 40)
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks[:len(chunks)-1] {
		assert.True(t, strings.HasSuffix(c, "."), "chunk should end on a sentence: %q", c)
		assert.LessOrEqual(t, len([]rune(c)), 200)
	}
}

func TestChunkText_RawBoundaryWithoutBreak(t *testing.T) {
	text := strings.Repeat("a", 250)

	chunks := ChunkText(text, 100, 10)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 100)
	assert.Len(t, chunks[1], 100)
	// 0-100, 90-190, 180-250
	assert.Len(t, chunks[2], 70)
}

func TestChunkText_EarlyBreakIsIgnored(t *testing.T) {
	text := "Short. " + strings.Repeat("x", 200)

	chunks := ChunkText(text, 100, 0)
	require.NotEmpty(t, chunks)
	assert.Len(t, []rune(chunks[0]), 100)
}

func TestChunkText_CoversWholeInput(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 300; i++ {
		fmt.Fprintf(&b, "rule-%04d", i)
		if i%4 == 0 {
			b.WriteString(".\n")
		} else {
			b.WriteString(" ")
		}
	}
	text := b.String()

	chunks := ChunkText(text, 300, 60)
	require.Greater(t, len(chunks), 1)

	covered := make([]bool, len(text))
	for _, c := range chunks {
		require.NotEmpty(t, strings.TrimSpace(c))
		idx := strings.Index(text, c)
		require.GreaterOrEqual(t, idx, 0, "chunk must be a span of the input")
		for i := idx; i < idx+len(c); i++ {
			covered[i] = true
		}
	}

	for i, ch := range text {
		if ch != ' ' && ch != '\n' {
			require.True(t, covered[i], "byte %d (%q) not covered", i, ch)
		}
	}
}

func TestChunkText_KeepsMultibyteRunesIntact(t *testing.T) {
	text := strings.Repeat("Cook poultry to 165°F. ", 30)

	for _, c := range ChunkText(text, 50, 10) {
		assert.NotContains(t, c, "�")
	}
}

func TestNewChunker_Defaults(t *testing.T) {
	c := NewChunker(0, -1)
	assert.Equal(t, DefaultChunkSize, c.size)
	assert.Equal(t, DefaultChunkOverlap, c.overlap)

	c = NewChunker(100, 100)
	assert.Less(t, c.overlap, c.size)
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 4, WordCount(" store raw  chicken\nbelow "))
}
