package graphrag

import "codegraph/internal/graph"

// QueryContext aggregates everything retrieval produced for one
// question: the vector hits plus the graph neighborhood around them.
type QueryContext struct {
	Question  string
	Hits      []graph.SearchResult
	Entities  []graph.EntityRecord
	Relations []graph.Relation
	Files     []graph.FileRecord
}

// Empty reports whether retrieval found nothing usable.
func (qc *QueryContext) Empty() bool {
	return len(qc.Hits) == 0
}
