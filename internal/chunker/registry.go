package chunker

import (
	"context"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// LanguageSpec defines the tree-sitter grammar and query used to locate
// top-level declarations for a language.
type LanguageSpec struct {
	Language *sitter.Language
	// Query is a tree-sitter S-expression query capturing top-level
	// definitions as @decl.
	Query string
}

// Registry maps language tags to specs.
type Registry struct {
	mu    sync.RWMutex
	langs map[string]*LanguageSpec
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{langs: make(map[string]*LanguageSpec)}
}

// Register adds a language spec under the given language tag.
func (r *Registry) Register(name string, spec *LanguageSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.langs[name] = spec
}

// LookupLanguage returns the spec for a language tag, or nil.
func (r *Registry) LookupLanguage(name string) *LanguageSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.langs[name]
}

// declarationOffsets parses src and returns the start byte offset of every
// captured top-level declaration.
func declarationOffsets(spec *LanguageSpec, src []byte) ([]int, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(spec.Language)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	defer tree.Close()

	q, err := sitter.NewQuery([]byte(spec.Query), spec.Language)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}
	defer q.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, tree.RootNode())

	var offsets []int
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, cap := range m.Captures {
			if q.CaptureNameForId(cap.Index) == "decl" {
				offsets = append(offsets, int(cap.Node.StartByte()))
			}
		}
	}
	return offsets, nil
}
