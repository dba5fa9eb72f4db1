// Package graphrag orchestrates the hybrid retrieval pipeline: building
// the entity graph and vector index from chunks, bridging chunks to
// entities, and answering questions by fusing vector search with graph
// traversal.
package graphrag

import (
	"codegraph/internal/embedder"
	"codegraph/internal/extractor"
	"codegraph/internal/graph"
	"codegraph/internal/llm"
)

const (
	// embedBatchSize bounds one embedding provider call.
	embedBatchSize = 32

	// maxRelationships caps graph expansion during query answering.
	maxRelationships = 50
)

// Service wires the store and the external providers together. Any
// component may be nil; operations that need a missing one fail with
// ErrDependencyMissing or ErrNotInitialized.
type Service struct {
	store     graph.Store
	embedder  embedder.Embedder
	generator llm.Generator
	extractor extractor.Extractor
}

// New builds a Service over the given components.
func New(store graph.Store, emb embedder.Embedder, gen llm.Generator, ext extractor.Extractor) *Service {
	return &Service{
		store:     store,
		embedder:  emb,
		generator: gen,
		extractor: ext,
	}
}

// ensureStore pings the store and tries a single reconnect before giving
// up.
func (s *Service) ensureStore() error {
	if s.store == nil {
		return ErrNotInitialized
	}
	if err := s.store.Ping(); err != nil {
		if err := s.store.Reconnect(); err != nil {
			return err
		}
	}
	return nil
}
