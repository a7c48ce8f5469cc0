package embedding

import (
	"context"
	"hash/fnv"

	"github.com/hyperjump/kouho/internal/textnorm"
	"github.com/hyperjump/kouho/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests and for running without a model.
// Each word is hashed into one of the dimensions (feature hashing), so texts that share
// words get similar vectors and the same text always gets the same embedding.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns the unit-length hashed bag of words of text. Blank text yields the zero vector.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb := make([]float32, e.dimensions)
	for _, word := range textnorm.Words(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(word))
		sum := h.Sum64()
		sign := float32(1)
		if sum>>63 == 1 {
			sign = -1
		}
		emb[sum%uint64(e.dimensions)] += sign
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
