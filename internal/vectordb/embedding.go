package vectordb

import (
	"fmt"

	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	defaultef "github.com/amikos-tech/chroma-go/pkg/embeddings/default_ef"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/ollama"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/openai"

	"github.com/xxxsen/chromaproxy/internal/config"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "nomic-embed-text"
)

// sharedEmbedding hides any Close method of the wrapped function. Every
// collection handle holds the same function and closes its own on release,
// while the client owns its lifetime.
type sharedEmbedding struct {
	embeddings.EmbeddingFunction
}

// newEmbeddingFunction builds the single embedding function used by every
// collection of a client. The returned closer may be nil.
func newEmbeddingFunction(cfg config.EmbeddingConfig) (embeddings.EmbeddingFunction, func() error, error) {
	switch cfg.Provider {
	case "", config.EmbeddingDefault:
		ef, closeFn, err := defaultef.NewDefaultEmbeddingFunction()
		if err != nil {
			return nil, nil, fmt.Errorf("default embedding: %w", err)
		}
		return sharedEmbedding{ef}, closeFn, nil
	case config.EmbeddingHash:
		return sharedEmbedding{embeddings.NewConsistentHashEmbeddingFunction()}, nil, nil
	case config.EmbeddingOllama:
		base, model := cfg.URL, cfg.Model
		if base == "" {
			base = defaultOllamaURL
		}
		if model == "" {
			model = defaultOllamaModel
		}
		ef, err := ollama.NewOllamaEmbeddingFunction(
			ollama.WithBaseURL(base),
			ollama.WithModel(embeddings.EmbeddingModel(model)),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("ollama embedding: %w", err)
		}
		return sharedEmbedding{ef}, nil, nil
	case config.EmbeddingOpenAI:
		var opts []openai.Option
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(openai.EmbeddingModel(cfg.Model)))
		}
		if cfg.URL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.URL))
		}
		ef, err := openai.NewOpenAIEmbeddingFunction(cfg.APIKey, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("openai embedding: %w", err)
		}
		return sharedEmbedding{ef}, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
}
