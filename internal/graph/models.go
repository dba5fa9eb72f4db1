package graph

// Node type labels persisted for structural entities. The extractor may
// emit labels outside this set; they are stored as-is.
const (
	TypeFile     = "File"
	TypeFunction = "Function"
	TypeClass    = "Class"
	TypeModule   = "Module"
	TypePackage  = "Package"
)

// Edge type vocabulary for entity-to-entity relationships.
const (
	EdgeContains   = "CONTAINS"
	EdgeCalls      = "CALLS"
	EdgeImports    = "IMPORTS"
	EdgeInherits   = "INHERITS"
	EdgeImplements = "IMPLEMENTS"
	EdgeDependsOn  = "DEPENDS_ON"
)

// Bridge edge types connecting chunks to entities. These are heuristic,
// distinct in provenance from extractor-sourced edges.
const (
	BridgeRepresents = "REPRESENTS"
	BridgePartOfFile = "PART_OF_FILE"
)

// OriginHeuristic tags bridge rows created by the substring linker.
const OriginHeuristic = "heuristic"

// ChunkRecord is a chunk node persisted with its embedding metadata.
// The row's creation timestamp is assigned by the schema default.
type ChunkRecord struct {
	ID        int64
	FilePath  string
	FileName  string
	Language  string
	Text      string
	Length    int
	StartLine int
	EndLine   int
	RootPath  string
}

// FileRecord summarizes one source file; keyed by path.
type FileRecord struct {
	Path       string
	Name       string
	Ext        string
	Language   string
	ChunkCount int
	MaxEndLine int
}

// EntityRecord is a structural entity; (Name, Type) is the natural key.
type EntityRecord struct {
	ID         int64
	Name       string
	Type       string
	Properties string // JSON object, opaque
}

// EntityEdge is an upsert request for a typed entity-to-entity edge,
// addressed by natural keys.
type EntityEdge struct {
	SourceName string
	SourceType string
	TargetName string
	TargetType string
	Type       string
}

// Relation is a read-side entity relationship.
type Relation struct {
	Source string
	Target string
	Type   string
}

// SearchResult pairs a chunk with its similarity score.
type SearchResult struct {
	Chunk      ChunkRecord
	Similarity float64
}

// Stats holds read-only store counts.
type Stats struct {
	TotalNodes     int
	TotalRelations int
	NodeLabels     map[string]int
	RelationTypes  map[string]int
	HasVectorIndex bool
	VectorRowCount int
}
