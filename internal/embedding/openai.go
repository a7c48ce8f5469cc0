package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIModel = "text-embedding-3-small"

// OpenAIConfig configures the OpenAI-compatible embedder.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	Dimensions int
	// MaxRetries overrides the SDK retry count when positive.
	MaxRetries int
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint using the official SDK.
type OpenAIEmbedder struct {
	client     openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbedder creates the embedder. BaseURL lets it target compatible servers.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("openai dimensions must be positive, got %d", cfg.Dimensions)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultOpenAIModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	return &OpenAIEmbedder{
		client:     openai.NewClient(opts...),
		model:      model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed returns the embedding for one text.
func (o *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds all texts in one request, ordered by the response index.
func (o *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:      openai.EmbeddingModel(o.model),
		Dimensions: openai.Int(int64(o.dimensions)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, fmt.Errorf("openai returned embedding index %d for %d texts", d.Index, len(texts))
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		if err := checkDimensions(vec, o.dimensions); err != nil {
			return nil, err
		}
		out[d.Index] = vec
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("openai returned no embedding for text %d", i)
		}
	}
	return out, nil
}

// Dimensions returns the requested output dimension.
func (o *OpenAIEmbedder) Dimensions() int {
	return o.dimensions
}

// Close is a no-op.
func (o *OpenAIEmbedder) Close() error {
	return nil
}
