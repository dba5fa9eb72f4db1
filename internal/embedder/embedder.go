// Package embedder turns text into fixed-length float vectors through an
// external provider.
package embedder

// Embedder is the embedding provider contract. Embed preserves input
// order; every vector has the provider's fixed dimensionality.
type Embedder interface {
	Embed(texts []string) ([][]float32, error)
	EmbedSingle(text string) ([]float32, error)
}
