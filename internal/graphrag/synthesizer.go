package graphrag

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"codegraph/internal/graph"
)

const (
	// promptChunks is how many top hits get their code inlined.
	promptChunks = 3
	// promptFiles caps the file summary section.
	promptFiles = 3
	// namesPerType caps entity names listed per type.
	namesPerType = 5
	// relationsPerType caps relations listed per type.
	relationsPerType = 3

	// snippet truncation: cut at snippetMax, backing up to the last
	// newline past snippetMin so code lines stay whole.
	snippetMax = 1000
	snippetMin = 800
)

const answerSystem = `You are a helpful assistant answering questions about a codebase. Ground your answer in the provided code and graph context. Be conversational and concrete; cite file names when you reference code. If the context does not cover the question, say so.`

// synthesize turns a query context into prose. If no generator is
// configured or generation fails, a deterministic summary of the
// retrieved context is returned instead.
func (s *Service) synthesize(qc *QueryContext) string {
	prompt := buildAnswerPrompt(qc)

	if s.generator != nil {
		answer, err := s.generator.Generate(answerSystem, prompt)
		if err == nil && strings.TrimSpace(answer) != "" {
			return strings.TrimSpace(answer)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: answer generation failed: %v\n", err)
		}
	}
	return fallbackAnswer(qc)
}

func buildAnswerPrompt(qc *QueryContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Question: %s\n\n", qc.Question)

	b.WriteString("Relevant code:\n")
	for i, h := range qc.Hits {
		if i >= promptChunks {
			break
		}
		fmt.Fprintf(&b, "\n[%d] %s (lines %d-%d, similarity %.2f)\n",
			i+1, h.Chunk.FilePath, h.Chunk.StartLine, h.Chunk.EndLine, h.Similarity)
		fmt.Fprintf(&b, "```%s\n%s\n```\n", h.Chunk.Language, truncateSnippet(h.Chunk.Text))
	}

	if section := entitySection(qc.Entities); section != "" {
		b.WriteString("\nCode entities in these chunks:\n")
		b.WriteString(section)
	}
	if section := relationSection(qc.Relations); section != "" {
		b.WriteString("\nRelationships:\n")
		b.WriteString(section)
	}
	if len(qc.Files) > 0 {
		b.WriteString("\nFiles involved:\n")
		for i, f := range qc.Files {
			if i >= promptFiles {
				break
			}
			fmt.Fprintf(&b, "- %s (%s, %d chunks, ~%d lines)\n",
				f.Path, f.Language, f.ChunkCount, f.MaxEndLine)
		}
	}

	b.WriteString("\nAnswer the question using this context.")
	return b.String()
}

// truncateSnippet bounds a code excerpt, preferring to cut at a line
// boundary rather than mid-line.
func truncateSnippet(text string) string {
	if len(text) <= snippetMax {
		return text
	}
	cut := snippetMax
	if nl := strings.LastIndex(text[:snippetMax], "\n"); nl > snippetMin {
		cut = nl
	}
	return text[:cut] + "\n..."
}

func entitySection(entities []graph.EntityRecord) string {
	if len(entities) == 0 {
		return ""
	}
	byType := map[string][]string{}
	for _, e := range entities {
		byType[e.Type] = append(byType[e.Type], e.Name)
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	var b strings.Builder
	for _, t := range types {
		names := byType[t]
		shown := names
		if len(shown) > namesPerType {
			shown = shown[:namesPerType]
		}
		fmt.Fprintf(&b, "- %s: %s", t, strings.Join(shown, ", "))
		if extra := len(names) - len(shown); extra > 0 {
			fmt.Fprintf(&b, " (+%d more)", extra)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func relationSection(relations []graph.Relation) string {
	if len(relations) == 0 {
		return ""
	}
	byType := map[string][]graph.Relation{}
	for _, r := range relations {
		byType[r.Type] = append(byType[r.Type], r)
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	var b strings.Builder
	for _, t := range types {
		rels := byType[t]
		shown := rels
		if len(shown) > relationsPerType {
			shown = shown[:relationsPerType]
		}
		for _, r := range shown {
			fmt.Fprintf(&b, "- %s %s %s\n", r.Source, r.Type, r.Target)
		}
		if extra := len(rels) - len(shown); extra > 0 {
			fmt.Fprintf(&b, "- (+%d more %s)\n", extra, t)
		}
	}
	return b.String()
}

// fallbackAnswer summarizes the retrieved context without a language
// model, so queries still return something useful when generation is
// unavailable.
func fallbackAnswer(qc *QueryContext) string {
	if qc.Empty() {
		return "I couldn't find anything relevant to that question."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d relevant code sections for %q:\n", len(qc.Hits), qc.Question)
	for i, h := range qc.Hits {
		if i >= promptChunks {
			break
		}
		fmt.Fprintf(&b, "\n%d. %s (lines %d-%d, similarity %.2f)\n",
			i+1, h.Chunk.FilePath, h.Chunk.StartLine, h.Chunk.EndLine, h.Similarity)
	}
	if section := entitySection(qc.Entities); section != "" {
		b.WriteString("\nRelated entities:\n")
		b.WriteString(section)
	}
	b.WriteString("\n(Answer generation was unavailable; showing retrieved context.)")
	return b.String()
}
