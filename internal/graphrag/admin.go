package graphrag

import (
	"fmt"

	"codegraph/internal/graph"
)

// ClearAll wipes every stored node, relationship, and embedding. The
// confirm flag must be set; without it nothing is touched.
func (s *Service) ClearAll(confirm bool) (Result, error) {
	if !confirm {
		return Result{Message: "refusing to clear without confirmation"}, ErrConfirmationRequired
	}
	if err := s.ensureStore(); err != nil {
		return Result{Message: fmt.Sprintf("store unavailable: %v", err)}, err
	}

	nodes, relations, err := s.store.ClearAll()
	if err != nil {
		return Result{Message: fmt.Sprintf("clear failed: %v", err)}, err
	}
	return Result{
		OK:      true,
		Message: fmt.Sprintf("cleared %d nodes and %d relationships", nodes, relations),
	}, nil
}

// GetStatistics reports store-wide node, relationship, and vector index
// counts.
func (s *Service) GetStatistics() (*graph.Stats, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}
	return s.store.Stats()
}

// ListFiles returns every indexed file's summary row.
func (s *Service) ListFiles() ([]graph.FileRecord, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}
	return s.store.ListFiles()
}
