package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/xhad/askmydocs/internal/types"
)

// DefaultEmbeddingModel is the Ollama build of sentence-transformers/all-MiniLM-L6-v2.
const DefaultEmbeddingModel = "all-minilm"

type EmbedderConfig struct {
	Model   string
	BaseURL string // Ollama server URL
}

// Embedder turns chunk and query text into vectors. Every failure it returns
// wraps types.ErrEmbeddingBackend.
type Embedder struct {
	Config EmbedderConfig
	embed  embeddings.Embedder
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = DefaultEmbeddingModel
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}

	client, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize %s: %v", types.ErrEmbeddingBackend, config.Model, err)
	}

	emb, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrEmbeddingBackend, err)
	}

	return Wrap(config, emb), nil
}

// Wrap adapts any langchaingo embedder, tagging its errors as backend errors.
func Wrap(config EmbedderConfig, emb embeddings.Embedder) *Embedder {
	return &Embedder{Config: config, embed: emb}
}

func (e *Embedder) ModelName() string {
	return e.Config.Model
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.embed.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrEmbeddingBackend, e.Config.Model, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: %s returned %d vectors for %d texts",
			types.ErrEmbeddingBackend, e.Config.Model, len(vectors), len(texts))
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.embed.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrEmbeddingBackend, e.Config.Model, err)
	}
	return vector, nil
}
