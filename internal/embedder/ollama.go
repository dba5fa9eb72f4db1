package embedder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	ollamaEmbedPath    = "/api/embed"
	ollamaEmbedTimeout = 2 * time.Minute
)

// OllamaEmbedder embeds text through an Ollama server. A whole batch
// travels in one /api/embed request and the server answers with one
// vector per input, in input order.
type OllamaEmbedder struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaEmbedder builds an embedder for the given server URL and
// model. A trailing slash on the URL is tolerated.
func NewOllamaEmbedder(baseURL, model string) *OllamaEmbedder {
	return &OllamaEmbedder{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: ollamaEmbedTimeout},
	}
}

type ollamaEmbedPayload struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedReply struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// Embed returns one vector per input text, preserving order. A count
// mismatch from the server is an error, never silently truncated.
func (e *OllamaEmbedder) Embed(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(ollamaEmbedPayload{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("encode embed payload: %w", err)
	}

	resp, err := e.client.Post(e.baseURL+ollamaEmbedPath, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama embed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var reply ollamaEmbedReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("decode embed reply: %w", err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("ollama embed: %s", reply.Error)
	}
	if len(reply.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: %d vectors for %d inputs", len(reply.Embeddings), len(texts))
	}
	return reply.Embeddings, nil
}

// EmbedSingle embeds one text.
func (e *OllamaEmbedder) EmbedSingle(text string) ([]float32, error) {
	vecs, err := e.Embed([]string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}
