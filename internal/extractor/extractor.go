// Package extractor obtains typed nodes and edges from source text through
// an external LLM. The extractor is opaque and non-deterministic; callers
// persist whatever it returns.
package extractor

import "strings"

// Kind is a node type label. Known kinds canonicalize to the fixed
// vocabulary; anything else passes through as-is and reports Known()
// false.
type Kind string

const (
	KindFile     Kind = "File"
	KindFunction Kind = "Function"
	KindClass    Kind = "Class"
	KindModule   Kind = "Module"
	KindPackage  Kind = "Package"
)

var knownKinds = map[string]Kind{
	"file":     KindFile,
	"function": KindFunction,
	"method":   KindFunction,
	"class":    KindClass,
	"module":   KindModule,
	"package":  KindPackage,
}

// KindFor canonicalizes a label into a Kind.
func KindFor(label string) Kind {
	if k, ok := knownKinds[strings.ToLower(strings.TrimSpace(label))]; ok {
		return k
	}
	return Kind(strings.TrimSpace(label))
}

// Known reports whether the kind is in the fixed vocabulary.
func (k Kind) Known() bool {
	_, ok := knownKinds[strings.ToLower(string(k))]
	return ok
}

// EdgeKind is a relationship type label, same non-strict policy as Kind.
type EdgeKind string

const (
	EdgeContains   EdgeKind = "CONTAINS"
	EdgeCalls      EdgeKind = "CALLS"
	EdgeImports    EdgeKind = "IMPORTS"
	EdgeInherits   EdgeKind = "INHERITS"
	EdgeImplements EdgeKind = "IMPLEMENTS"
	EdgeDependsOn  EdgeKind = "DEPENDS_ON"
)

var knownEdgeKinds = map[string]EdgeKind{
	"contains":   EdgeContains,
	"calls":      EdgeCalls,
	"imports":    EdgeImports,
	"inherits":   EdgeInherits,
	"implements": EdgeImplements,
	"depends_on": EdgeDependsOn,
	"depends on": EdgeDependsOn,
	"depends-on": EdgeDependsOn,
}

// EdgeKindFor canonicalizes a relationship label.
func EdgeKindFor(label string) EdgeKind {
	if k, ok := knownEdgeKinds[strings.ToLower(strings.TrimSpace(label))]; ok {
		return k
	}
	return EdgeKind(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(label), " ", "_")))
}

// Known reports whether the edge kind is in the fixed vocabulary.
func (k EdgeKind) Known() bool {
	_, ok := knownEdgeKinds[strings.ToLower(string(k))]
	return ok
}

// Node is an extracted structural entity.
type Node struct {
	ID         string // identifier string, natural key
	Kind       Kind
	Properties map[string]string
}

// Edge is a typed directed relationship between two extracted nodes.
type Edge struct {
	SourceID   string
	SourceKind Kind
	TargetID   string
	TargetKind Kind
	Kind       EdgeKind
}

// GraphDocument is the extractor's output for a chunk batch.
type GraphDocument struct {
	Nodes []Node
	Edges []Edge
}

// ChunkInput is the slice of source text handed to the extractor.
type ChunkInput struct {
	FilePath string
	Language string
	Text     string
}

// Extractor converts source chunks into a graph document, constrained (but
// not strictly) to the allowed node and edge vocabularies.
type Extractor interface {
	Extract(chunks []ChunkInput, allowedNodes, allowedEdges []string) (*GraphDocument, error)
}
