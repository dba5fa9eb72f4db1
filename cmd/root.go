package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"codegraph/internal/config"
	"codegraph/internal/embedder"
	"codegraph/internal/extractor"
	"codegraph/internal/graph"
	"codegraph/internal/graphrag"
	"codegraph/internal/llm"

	"github.com/spf13/cobra"
)

var (
	flagStore    string
	flagProvider string
)

var rootCmd = &cobra.Command{
	Use:   "codegraph",
	Short: "Graph-augmented code retrieval over a local SQLite store",
	Long: `codegraph chunks a codebase, builds an entity graph and a vector
index in one SQLite database, links them with substring heuristics, and
answers questions by fusing vector search with graph traversal.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagStore, "store", "", "database path (default $CODEGRAPH_STORE or .codegraph/graph.db)")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "embedding/LLM provider: ollama or openai (default $CODEGRAPH_PROVIDER)")
}

// loadConfig merges the environment configuration with flag overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if flagStore != "" {
		cfg.StorePath = flagStore
	}
	if flagProvider != "" {
		cfg.Provider = flagProvider
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// providers builds the embedding and generation clients for the
// configured backend.
func providers(cfg *config.Config) (embedder.Embedder, llm.Generator) {
	if cfg.Provider == config.ProviderOpenAI {
		return embedder.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel),
			llm.NewOpenAIChat(cfg.OpenAIAPIKey, cfg.LLMModel)
	}
	return embedder.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbeddingModel),
		llm.NewOllamaChat(cfg.OllamaURL, cfg.LLMModel)
}

// openService opens the store (creating its directory if needed) and
// assembles the full service. Callers own the returned store's Close.
func openService(cfg *config.Config) (*graphrag.Service, *graph.SQLiteStore, error) {
	if dir := filepath.Dir(cfg.StorePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	st, err := graph.Open(cfg.StorePath, cfg.EmbeddingDim)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	emb, gen := providers(cfg)
	svc := graphrag.New(st, emb, gen, extractor.NewLLMExtractor(gen))
	return svc, st, nil
}

// requireStore fails early when no database exists yet, so read-only
// commands give a useful hint instead of an empty result.
func requireStore(cfg *config.Config) error {
	if _, err := os.Stat(cfg.StorePath); os.IsNotExist(err) {
		return fmt.Errorf("no index at %s\nRun 'codegraph ingest <path>' first", cfg.StorePath)
	}
	return nil
}
