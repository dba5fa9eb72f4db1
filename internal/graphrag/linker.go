package graphrag

import (
	"fmt"

	"github.com/google/uuid"
)

// Link rebuilds the heuristic bridges between chunks and entities. Prior
// heuristic bridges are discarded and replaced under a fresh build id, so
// repeated runs converge instead of accumulating. Linking is best-effort:
// a store failure yields zero bridges, not a failed build.
func (s *Service) Link() Result {
	if err := s.ensureStore(); err != nil {
		return Result{OK: true, Message: fmt.Sprintf("bridge linking skipped: %v", err)}
	}

	buildID := uuid.NewString()
	count, err := s.store.ReplaceBridges(buildID)
	if err != nil {
		return Result{OK: true, Message: fmt.Sprintf("bridge linking skipped: %v", err)}
	}
	return Result{
		OK:      true,
		Message: fmt.Sprintf("linked graph to chunks: %d bridge relationships", count),
	}
}
