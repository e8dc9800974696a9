package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/googleai/vertex"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"document-indexer/internal/config"
)

var (
	ErrEmbeddingFailed   = errors.New("embedding failed")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Embedder turns chunk texts into vectors, one remote call per chunk.
type Embedder struct {
	impl      embeddings.Embedder
	model     string
	dimension int
	log       zerolog.Logger
}

// New validates the provider credentials and builds the langchaingo client.
// Nothing is sent over the network here.
func New(ctx context.Context, cfg *config.LLMConfig, log zerolog.Logger) (*Embedder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: embedding config", config.ErrMissingConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Debug().Interface("config", map[string]string{
		"provider":        cfg.Provider,
		"embedding_model": cfg.Model,
		"base_url":        cfg.BaseURL,
		"project_id":      cfg.ProjectID,
		"location":        cfg.Location,
	}).Msg("Loaded embedding config")

	impl, err := newProviderEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return Wrap(impl, cfg.Model, cfg.Dimension, log), nil
}

// Wrap builds an Embedder around an existing langchaingo embedder. A
// dimension of zero disables the vector length check.
func Wrap(impl embeddings.Embedder, model string, dimension int, log zerolog.Logger) *Embedder {
	return &Embedder{impl: impl, model: model, dimension: dimension, log: log}
}

func newProviderEmbedder(ctx context.Context, cfg *config.LLMConfig) (embeddings.Embedder, error) {
	var (
		client embeddings.EmbedderClient
		err    error
	)
	switch cfg.Provider {
	case config.ProviderVertex:
		opts := []googleai.Option{
			googleai.WithCloudProject(cfg.ProjectID),
			googleai.WithCloudLocation(cfg.Location),
			googleai.WithDefaultEmbeddingModel(cfg.Model),
		}
		client, err = vertex.New(ctx, opts...)
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithEmbeddingModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		client, err = openai.New(opts...)
	case config.ProviderOllama:
		client, err = ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", config.ErrMissingConfig, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initialize %s client: %w", cfg.Provider, err)
	}

	embedder, err := newClientEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("create %s embedder: %w", cfg.Provider, err)
	}
	return embedder, nil
}

// newClientEmbedder sends every chunk to the model exactly as it will be
// stored, line breaks included.
func newClientEmbedder(client embeddings.EmbedderClient) (embeddings.Embedder, error) {
	return embeddings.NewEmbedder(client, embeddings.WithStripNewLines(false))
}

// EmbedChunks embeds each chunk in order and returns one vector per chunk.
// The first failure aborts the whole batch.
func (e *Embedder) EmbedChunks(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for i, chunk := range chunks {
		vector, err := e.impl.EmbedQuery(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %w", ErrEmbeddingFailed, i, err)
		}
		if e.dimension > 0 && len(vector) != e.dimension {
			return nil, fmt.Errorf("%w: chunk %d has %d values, want %d", ErrDimensionMismatch, i, len(vector), e.dimension)
		}
		e.log.Debug().Int("chunk", i).Int("dimension", len(vector)).Msg("Embedded chunk")
		vectors = append(vectors, vector)
	}
	return vectors, nil
}

// Model returns the configured model name.
func (e *Embedder) Model() string {
	return e.model
}
