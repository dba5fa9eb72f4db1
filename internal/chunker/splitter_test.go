package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSmallTextSinglePiece(t *testing.T) {
	pieces := split("short text", 100, 10, nil)
	require.Len(t, pieces, 1)
	assert.Equal(t, "short text", pieces[0].text)
	assert.Equal(t, 1, pieces[0].startLine)
	assert.Equal(t, 1, pieces[0].endLine)
}

func TestSplitToleratesSlightOverage(t *testing.T) {
	// 115 chars with size 100: within the 1.2x tolerance, one piece.
	text := strings.Repeat("a", 115)
	pieces := split(text, 100, 10, nil)
	assert.Len(t, pieces, 1)
}

func TestSplitSizeBound(t *testing.T) {
	text := strings.Repeat("word ", 500)
	size := 100
	pieces := split(text, size, 10, nil)
	require.Greater(t, len(pieces), 1)

	limit := int(float64(size) * sizeTolerance)
	for _, p := range pieces {
		assert.LessOrEqual(t, len(p.text), limit)
	}
}

func TestSplitCoversAllText(t *testing.T) {
	text := strings.Repeat("0123456789", 50)
	pieces := split(text, 80, 0, nil)

	var rebuilt strings.Builder
	for _, p := range pieces {
		rebuilt.WriteString(p.text)
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestSplitOverlapRepeatsText(t *testing.T) {
	text := strings.Repeat("x", 300)
	pieces := split(text, 100, 20, nil)
	require.Greater(t, len(pieces), 1)

	for i := 1; i < len(pieces); i++ {
		prev, cur := pieces[i-1].text, pieces[i].text
		tail := prev[len(prev)-20:]
		assert.True(t, strings.HasPrefix(cur, tail), "piece %d should start with the previous tail", i)
	}
}

func TestSplitPrefersBoundaries(t *testing.T) {
	// Boundary at 90 sits in the (50, 100] window for the first cut.
	text := strings.Repeat("a", 90) + strings.Repeat("b", 200)
	pieces := split(text, 100, 0, []int{90})
	require.Greater(t, len(pieces), 1)
	assert.Equal(t, strings.Repeat("a", 90), pieces[0].text)
}

func TestSplitFallsBackToWhitespace(t *testing.T) {
	text := strings.Repeat("a", 80) + " " + strings.Repeat("b", 200)
	pieces := split(text, 100, 0, nil)
	require.Greater(t, len(pieces), 1)
	assert.Equal(t, strings.Repeat("a", 80)+" ", pieces[0].text)
}

func TestSplitLineTracking(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("line of source text here\n")
	}
	text := b.String()

	pieces := split(text, 200, 0, nil)
	require.Greater(t, len(pieces), 1)

	assert.Equal(t, 1, pieces[0].startLine)
	for i := 1; i < len(pieces); i++ {
		assert.Equal(t, pieces[i-1].endLine, pieces[i].startLine,
			"zero overlap: each piece starts where the previous ended")
	}
}

func TestSplitUTF8Safe(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 100)
	pieces := split(text, 100, 10, nil)
	for i, p := range pieces {
		assert.True(t, strings.ToValidUTF8(p.text, "?") == p.text, "piece %d must stay valid UTF-8", i)
	}
}

func TestBlankLineOffsets(t *testing.T) {
	text := "a\n\nb\n\n\nc"
	offsets := blankLineOffsets(text)
	require.Len(t, offsets, 2)
	assert.Equal(t, byte('b'), text[offsets[0]])
	assert.Equal(t, byte('c'), text[offsets[1]])
}

func TestSortedUnique(t *testing.T) {
	got := sortedUnique([]int{5, 1, 5, 0, 9, 10, -2, 3}, 10)
	assert.Equal(t, []int{1, 3, 5, 9}, got)
}
