package graphrag

import (
	"fmt"
	"os"
)

// noResultsAnswer is returned verbatim when vector search comes back
// empty; no generation call is made in that case.
const noResultsAnswer = "No relevant code found in the indexed codebase for that question."

// Answer runs the full retrieval pipeline: embed the question, search
// the vector index, expand through the entity graph, and synthesize a
// response. With includeGraph false the graph expansion is skipped and
// the answer rests on vector hits alone.
func (s *Service) Answer(question string, k int, includeGraph bool) (string, error) {
	answer, _, err := s.AnswerWithContext(question, k, includeGraph)
	return answer, err
}

// AnswerWithContext is Answer plus the retrieval context the response
// was synthesized from, for callers that want to render the hits and
// graph neighborhood alongside the text.
func (s *Service) AnswerWithContext(question string, k int, includeGraph bool) (string, *QueryContext, error) {
	if s.embedder == nil {
		return "", nil, fmt.Errorf("%w: embedder not configured", ErrNotInitialized)
	}
	if err := s.ensureStore(); err != nil {
		return "", nil, err
	}
	if k <= 0 {
		k = 5
	}

	qvec, err := s.embedder.EmbedSingle(question)
	if err != nil {
		return "", nil, fmt.Errorf("%w: embed question: %v", ErrExternalCall, err)
	}

	hits, err := s.store.Search(qvec, k)
	if err != nil {
		return "", nil, fmt.Errorf("vector search: %w", err)
	}

	qc := &QueryContext{Question: question, Hits: hits}
	if qc.Empty() {
		return noResultsAnswer, qc, nil
	}

	if includeGraph {
		s.expand(qc)
	}
	return s.synthesize(qc), qc, nil
}

// expand pulls the graph neighborhood of the hit chunks into the query
// context. Expansion failures degrade to a vector-only answer.
func (s *Service) expand(qc *QueryContext) {
	chunkIDs := make([]int64, len(qc.Hits))
	pathSeen := map[string]bool{}
	var paths []string
	for i, h := range qc.Hits {
		chunkIDs[i] = h.Chunk.ID
		if !pathSeen[h.Chunk.FilePath] {
			pathSeen[h.Chunk.FilePath] = true
			paths = append(paths, h.Chunk.FilePath)
		}
	}

	entities, err := s.store.EntitiesForChunks(chunkIDs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: graph expansion failed: %v\n", err)
		return
	}
	qc.Entities = entities

	if len(entities) > 0 {
		ids := make([]int64, len(entities))
		for i, e := range entities {
			ids[i] = e.ID
		}
		relations, err := s.store.RelationsAmong(ids, maxRelationships)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: relation lookup failed: %v\n", err)
		} else {
			qc.Relations = relations
		}
	}

	files, err := s.store.FileSummaries(paths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: file summary lookup failed: %v\n", err)
		return
	}
	qc.Files = files
}
