// Package embedding maps text to fixed-dimension vectors: local ONNX inference, remote
// Gemini and OpenAI-compatible APIs, and a deterministic mock, plus caching and
// request throttling wrappers.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

// Provider names accepted in configuration.
const (
	ProviderONNX   = "onnx"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// ErrDimensionMismatch reports a provider response whose length differs from the
// configured dimension.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

func checkDimensions(vec []float32, want int) error {
	if len(vec) != want {
		return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vec), want)
	}
	return nil
}

// embedEach calls embed for each text in order.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
