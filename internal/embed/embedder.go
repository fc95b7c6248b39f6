// Package embed wraps an OpenAI-compatible embedding endpoint behind a
// small interface so the ingester and query engine never talk to the
// API directly.
package embed

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hpungsan/rhizome/internal/errors"
)

// Embedder produces fixed-dimension vectors for text. Implementations
// are constructed once per process and passed into every component that
// needs one; there is no ambient singleton.
type Embedder interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// ModelName identifies the model that produced the vectors.
	ModelName() string

	// Dimension is the length of every vector the model produces.
	Dimension() int
}

// modelDimensions maps known embedding models to their vector sizes.
// Models absent from this table need an explicit dimension override.
var modelDimensions = map[string]int{
	"all-MiniLM-L6-v2":       384,
	"BAAI/bge-m3":            1024,
	"nomic-embed-text":       768,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
}

// ModelDimension looks up the vector dimension for a known model name.
func ModelDimension(model string) (int, bool) {
	d, ok := modelDimensions[model]
	return d, ok
}

// KnownModels returns the names of all registered models.
func KnownModels() []string {
	names := make([]string, 0, len(modelDimensions))
	for name := range modelDimensions {
		names = append(names, name)
	}
	return names
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
// Pointing BaseURL at an Ollama or llama.cpp server works the same way;
// those servers ignore the API key.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	dim       int
	batchSize int
}

// DefaultBatchSize is the number of texts per embedding API call.
const DefaultBatchSize = 64

// NewOpenAIEmbedder builds an embedder for the given model. dimension
// may be 0 for models in the built-in registry; an unknown model with
// no dimension fails immediately, since the vector column cannot be
// sized without it.
func NewOpenAIEmbedder(baseURL, apiKey, model string, dimension, batchSize int) (*OpenAIEmbedder, error) {
	if model == "" {
		return nil, errors.NewInvalidRequest("embedding model is required")
	}
	if dimension == 0 {
		d, ok := ModelDimension(model)
		if !ok {
			return nil, errors.NewUnknownModel(model)
		}
		dimension = d
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if apiKey == "" {
		// Local OpenAI-compatible servers accept any key.
		apiKey = "rhizome"
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		dim:       dimension,
		batchSize: batchSize,
	}, nil
}

// ModelName returns the configured model name.
func (e *OpenAIEmbedder) ModelName() string { return e.model }

// Dimension returns the configured vector dimension.
func (e *OpenAIEmbedder) Dimension() int { return e.dim }

// Embed returns the vector for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.request(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in fixed-size API batches. Batch size only
// affects throughput, never output content.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		vectors, err := e.request(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// request performs one embeddings API call and orders the results by
// the response index field.
func (e *OpenAIEmbedder) request(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, errors.NewEmbeddingFailed(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.NewEmbeddingFailed(
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, errors.NewEmbeddingFailed(fmt.Errorf("embedding index %d out of range", d.Index))
		}
		if len(d.Embedding) != e.dim {
			return nil, errors.NewEmbeddingFailed(
				fmt.Errorf("model %s returned %d-dimensional vector, expected %d", e.model, len(d.Embedding), e.dim))
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// PrepareChunkText prefixes chunk content with its note title and
// section heading. The extra anchors improve retrieval quality.
func PrepareChunkText(content, headingContext, noteTitle string) string {
	var parts []string
	if noteTitle != "" {
		parts = append(parts, "Title: "+noteTitle)
	}
	if headingContext != "" {
		heading := strings.TrimSpace(strings.TrimLeft(headingContext, "#"))
		if heading != "" {
			parts = append(parts, "Section: "+heading)
		}
	}
	parts = append(parts, content)
	return strings.Join(parts, " | ")
}
