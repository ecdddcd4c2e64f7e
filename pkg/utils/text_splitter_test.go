package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTextShortInput(t *testing.T) {
	chunks := SplitText("short text", 100, 20)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0])
}

func TestSplitTextCoversWholeInput(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
	chunks := SplitText(text, 200, 40)

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 200)
		assert.NotEmpty(t, c)
	}

	// The last chunk must end exactly where the input ends.
	last := chunks[len(chunks)-1]
	assert.True(t, strings.HasSuffix(text, last))
}

func TestSplitTextPrefersSentenceBoundaries(t *testing.T) {
	text := strings.Repeat("One sentence here. Another one follows! A third asks? ", 30)
	chunks := SplitText(text, 150, 30)

	for i, c := range chunks[:len(chunks)-1] {
		trimmed := strings.TrimRight(c, " \n")
		lastRune := trimmed[len(trimmed)-1]
		assert.Contains(t, ".!?", string(lastRune), "chunk %d should end at a sentence boundary", i)
	}
}

func TestSplitTextOverlapPreservesContext(t *testing.T) {
	text := strings.Repeat("abcdefghij ", 50)
	chunks := SplitText(text, 100, 20)

	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		// Each chunk starts inside the tail of its predecessor.
		prevTail := chunks[i-1][len(chunks[i-1])-20:]
		head := chunks[i][:10]
		assert.Contains(t, prevTail+chunks[i], head)
	}
}

func TestSplitTextOverlapLargerThanChunk(t *testing.T) {
	text := strings.Repeat("x", 500)
	chunks := SplitText(text, 100, 150)

	require.NotEmpty(t, chunks)
	assert.Equal(t, strings.Repeat("x", 100), chunks[0])
}
