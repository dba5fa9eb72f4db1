package graphrag

import (
	"strings"
	"testing"

	"codegraph/internal/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateSnippetShortTextUntouched(t *testing.T) {
	assert.Equal(t, "short", truncateSnippet("short"))
}

func TestTruncateSnippetBreaksAtNewline(t *testing.T) {
	// Lines of 30 chars; a newline falls between 800 and 1000.
	line := strings.Repeat("x", 29) + "\n"
	text := strings.Repeat(line, 50)

	got := truncateSnippet(text)
	require.True(t, strings.HasSuffix(got, "\n..."))
	body := strings.TrimSuffix(got, "\n...")
	assert.LessOrEqual(t, len(body), snippetMax)
	assert.Greater(t, len(body), snippetMin)
	// The cut lands on a line boundary, not mid-line.
	assert.Equal(t, byte('\n'), text[len(body)])
}

func TestTruncateSnippetHardCutWithoutNewlines(t *testing.T) {
	text := strings.Repeat("a", 2000)
	got := truncateSnippet(text)
	assert.Equal(t, strings.Repeat("a", snippetMax)+"\n...", got)
}

func TestBuildAnswerPromptLimitsChunks(t *testing.T) {
	qc := &QueryContext{Question: "q"}
	for i := 0; i < 6; i++ {
		qc.Hits = append(qc.Hits, graph.SearchResult{
			Chunk: graph.ChunkRecord{ID: int64(i), FilePath: "f.go", Text: "code"},
		})
	}
	prompt := buildAnswerPrompt(qc)
	assert.Contains(t, prompt, "[3]")
	assert.NotContains(t, prompt, "[4]")
}

func TestEntitySectionCapsNamesPerType(t *testing.T) {
	var entities []graph.EntityRecord
	for _, n := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		entities = append(entities, graph.EntityRecord{Name: n, Type: graph.TypeFunction})
	}
	entities = append(entities, graph.EntityRecord{Name: "App", Type: graph.TypeClass})

	section := entitySection(entities)
	assert.Contains(t, section, "Function: a, b, c, d, e (+2 more)")
	assert.Contains(t, section, "Class: App")
}

func TestRelationSectionCapsPerType(t *testing.T) {
	var relations []graph.Relation
	for _, src := range []string{"a", "b", "c", "d", "e"} {
		relations = append(relations, graph.Relation{Source: src, Target: "z", Type: "CALLS"})
	}
	section := relationSection(relations)
	assert.Equal(t, 3, strings.Count(section, "CALLS z"))
	assert.Contains(t, section, "(+2 more CALLS)")
}

func TestFallbackAnswerEmptyContext(t *testing.T) {
	got := fallbackAnswer(&QueryContext{Question: "q"})
	assert.Contains(t, got, "couldn't find")
}
