package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-embedding-001"

// geminiModels is the part of genai.Models used for embedding.
type geminiModels interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// GeminiConfig configures the Gemini embedder.
type GeminiConfig struct {
	APIKey     string
	Model      string
	Dimensions int
}

// GeminiEmbedder calls the Gemini API embedContent endpoint with a fixed output dimension.
type GeminiEmbedder struct {
	models     geminiModels
	model      string
	dimensions int
}

// NewGeminiEmbedder creates a client for the Gemini API backend.
func NewGeminiEmbedder(ctx context.Context, cfg GeminiConfig) (*GeminiEmbedder, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGeminiEmbedder(client.Models, cfg.Model, cfg.Dimensions)
}

func newGeminiEmbedder(models geminiModels, model string, dimensions int) (*GeminiEmbedder, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("gemini dimensions must be positive, got %d", dimensions)
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiModel
	}
	return &GeminiEmbedder{models: models, model: model, dimensions: dimensions}, nil
}

// Embed returns the embedding for one text.
func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds all texts in one request.
func (g *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: text}},
		}
	}
	dims := int32(g.dimensions)
	resp, err := g.models.EmbedContent(ctx, g.model, contents, &genai.EmbedContentConfig{
		TaskType:             "SEMANTIC_SIMILARITY",
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embed content: %w", err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", got, len(texts))
	}
	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil {
			return nil, fmt.Errorf("gemini returned empty embedding at %d", i)
		}
		if err := checkDimensions(emb.Values, g.dimensions); err != nil {
			return nil, err
		}
		out[i] = emb.Values
	}
	return out, nil
}

// Dimensions returns the requested output dimension.
func (g *GeminiEmbedder) Dimensions() int {
	return g.dimensions
}

// Close is a no-op; the genai client holds no resources that need releasing.
func (g *GeminiEmbedder) Close() error {
	return nil
}
