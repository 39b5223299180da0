package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"

	"glass-rag/internal/config"
)

// ErrEmbeddingService marks transport or non-success failures of the
// embedding model service. No retry happens here; callers own retry policy.
var ErrEmbeddingService = errors.New("embedding service error")

// Embedder turns text into fixed-dimension vectors. The shape matches
// langchaingo's embeddings.Embedder so fakes are trivial in tests.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// NewOllamaEmbedder creates an embedder backed by an Ollama-compatible
// embeddings endpoint.
func NewOllamaEmbedder(cfg *config.LLMConfig) (Embedder, error) {
	log.Debug().
		Str("base_url", cfg.BaseURL).
		Str("embedding_model", cfg.Model).
		Msg("Initializing embedder")

	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing embedding LLM: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("error creating embedder: %w", err)
	}
	return &serviceEmbedder{inner: embedder}, nil
}

// serviceEmbedder tags every failure with ErrEmbeddingService so the
// pipeline can tell embedding failures apart from store failures.
type serviceEmbedder struct {
	inner embeddings.Embedder
}

func (e *serviceEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingService, err)
	}
	return vec, nil
}

func (e *serviceEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := e.inner.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingService, err)
	}
	return vecs, nil
}
