package graphrag

import "errors"

var (
	// ErrNotInitialized means the service is missing a component the
	// requested operation needs.
	ErrNotInitialized = errors.New("graphrag service not initialized")

	// ErrDependencyMissing means a build step's provider (embedder or
	// extractor) was not configured.
	ErrDependencyMissing = errors.New("required dependency missing")

	// ErrExternalCall wraps failures from embedding or generation
	// providers.
	ErrExternalCall = errors.New("external provider call failed")

	// ErrConfirmationRequired guards destructive operations.
	ErrConfirmationRequired = errors.New("confirmation required")
)

// Result reports the outcome of a build step: whether it succeeded and a
// human-readable summary for the caller to display.
type Result struct {
	OK      bool
	Message string
}
