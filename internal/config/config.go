// Package config loads codegraph settings from the environment, with an
// optional .env file picked up from the working directory.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Provider names accepted for embeddings and generation.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config holds all runtime settings.
type Config struct {
	// StorePath is the SQLite database file backing the graph and the
	// vector index.
	StorePath string

	Provider     string // ollama or openai
	OllamaURL    string
	OpenAIAPIKey string

	EmbeddingModel string
	EmbeddingDim   int
	LLMModel       string

	ChunkSize    int
	ChunkOverlap int
	MaxFileSize  int64
}

// Load reads configuration from the environment. A .env file, if present,
// is loaded first but never overrides variables already set.
func Load() *Config {
	godotenv.Load()

	return &Config{
		StorePath:      getEnv("CODEGRAPH_STORE", ".codegraph/graph.db"),
		Provider:       strings.ToLower(getEnv("CODEGRAPH_PROVIDER", ProviderOllama)),
		OllamaURL:      getEnv("OLLAMA_URL", "http://localhost:11434"),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
		EmbeddingDim:   getEnvInt("EMBEDDING_DIM", 768),
		LLMModel:       getEnv("LLM_MODEL", "qwen3:8b"),
		ChunkSize:      getEnvInt("CHUNK_SIZE", 500),
		ChunkOverlap:   getEnvInt("CHUNK_OVERLAP", 50),
		MaxFileSize:    int64(getEnvInt("MAX_FILE_SIZE", 10*1024*1024)),
	}
}

// Validate checks that the selected provider is usable and that chunking
// parameters are sane.
func (c *Config) Validate() error {
	var missing []string

	switch c.Provider {
	case ProviderOllama:
		if c.OllamaURL == "" {
			missing = append(missing, "OLLAMA_URL")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown provider %q (want %s or %s)", c.Provider, ProviderOllama, ProviderOpenAI)
	}

	if c.EmbeddingModel == "" {
		missing = append(missing, "EMBEDDING_MODEL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("EMBEDDING_DIM must be positive, got %d", c.EmbeddingDim)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
