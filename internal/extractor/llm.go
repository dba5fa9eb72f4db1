package extractor

import (
	"encoding/json"
	"fmt"
	"strings"

	"codegraph/internal/llm"
)

// extractBatchSize bounds how many chunks go into one extraction prompt.
const extractBatchSize = 8

const extractSystem = `You are a code analysis engine. You read source code and emit a graph of structural entities and their relationships as strict JSON. Output ONLY a JSON object, no prose, no markdown fences.`

const extractPromptHeader = `Extract code entities and relationships from the source chunks below.

Allowed entity types: %s
Allowed relationship types: %s

Respond with exactly this JSON shape:
{"nodes":[{"id":"<identifier>","type":"<entity type>","properties":{}}],
 "edges":[{"source":"<id>","source_type":"<type>","target":"<id>","target_type":"<type>","type":"<relationship type>"}]}

Use the entity's name as its id (class name, function name, file path).
Emit a File entity for each distinct file, with CONTAINS edges to the
classes and functions it defines.

Source chunks:
`

// LLMExtractor implements Extractor by prompting a chat model for a JSON
// graph document.
type LLMExtractor struct {
	generator llm.Generator
}

// NewLLMExtractor wraps a chat generator as an entity extractor.
func NewLLMExtractor(g llm.Generator) *LLMExtractor {
	return &LLMExtractor{generator: g}
}

type jsonNode struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
}

type jsonEdge struct {
	Source     string `json:"source"`
	SourceType string `json:"source_type"`
	Target     string `json:"target"`
	TargetType string `json:"target_type"`
	Type       string `json:"type"`
}

type jsonGraph struct {
	Nodes []jsonNode `json:"nodes"`
	Edges []jsonEdge `json:"edges"`
}

// Extract prompts the model once per chunk batch and merges the results.
// Malformed batches are skipped; Extract fails only when every batch
// fails or the merged document is empty.
func (e *LLMExtractor) Extract(chunks []ChunkInput, allowedNodes, allowedEdges []string) (*GraphDocument, error) {
	if e.generator == nil {
		return nil, fmt.Errorf("no generator configured")
	}

	doc := &GraphDocument{}
	var lastErr error
	batches := 0
	failed := 0

	for i := 0; i < len(chunks); i += extractBatchSize {
		end := i + extractBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batches++

		prompt := buildExtractPrompt(chunks[i:end], allowedNodes, allowedEdges)
		raw, err := e.generator.Generate(extractSystem, prompt)
		if err != nil {
			failed++
			lastErr = err
			continue
		}
		parsed, err := parseGraphJSON(raw)
		if err != nil {
			failed++
			lastErr = err
			continue
		}
		doc.Nodes = append(doc.Nodes, parsed.Nodes...)
		doc.Edges = append(doc.Edges, parsed.Edges...)
	}

	if failed == batches && lastErr != nil {
		return nil, fmt.Errorf("extraction failed for all %d batches: %w", batches, lastErr)
	}
	if len(doc.Nodes) == 0 {
		return nil, fmt.Errorf("extractor returned no entities")
	}
	return doc, nil
}

func buildExtractPrompt(chunks []ChunkInput, allowedNodes, allowedEdges []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, extractPromptHeader,
		strings.Join(allowedNodes, ", "), strings.Join(allowedEdges, ", "))
	for i, c := range chunks {
		fmt.Fprintf(&b, "\n--- Chunk %d: %s (%s) ---\n%s\n", i+1, c.FilePath, c.Language, c.Text)
	}
	return b.String()
}

// parseGraphJSON decodes the model's response, tolerating markdown fences
// and leading prose around the JSON object. Entries missing an id are
// dropped rather than failing the batch.
func parseGraphJSON(raw string) (*GraphDocument, error) {
	payload := extractJSONObject(raw)
	if payload == "" {
		return nil, fmt.Errorf("no JSON object in extractor response")
	}

	var g jsonGraph
	if err := json.Unmarshal([]byte(payload), &g); err != nil {
		return nil, fmt.Errorf("decode extractor response: %w", err)
	}

	doc := &GraphDocument{}
	for _, n := range g.Nodes {
		if strings.TrimSpace(n.ID) == "" {
			continue
		}
		doc.Nodes = append(doc.Nodes, Node{
			ID:         strings.TrimSpace(n.ID),
			Kind:       KindFor(n.Type),
			Properties: n.Properties,
		})
	}
	for _, ed := range g.Edges {
		if strings.TrimSpace(ed.Source) == "" || strings.TrimSpace(ed.Target) == "" {
			continue
		}
		doc.Edges = append(doc.Edges, Edge{
			SourceID:   strings.TrimSpace(ed.Source),
			SourceKind: KindFor(ed.SourceType),
			TargetID:   strings.TrimSpace(ed.Target),
			TargetKind: KindFor(ed.TargetType),
			Kind:       EdgeKindFor(ed.Type),
		})
	}
	return doc, nil
}

// extractJSONObject returns the outermost {...} span of the response.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}
