package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kouho/internal/config"
)

// NewFromConfig builds the configured provider, wrapped in a rate limiter (remote
// providers with requests_per_second > 0) and an LRU cache (cache_size > 0). When the
// ONNX provider cannot start, the mock embedder is used instead and a warning logged.
func NewFromConfig(ctx context.Context, cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, err := newProvider(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if base.Dimensions() != cfg.Dimensions {
		_ = base.Close()
		return nil, fmt.Errorf("%w: provider %s has %d, configured %d", ErrDimensionMismatch, cfg.Provider, base.Dimensions(), cfg.Dimensions)
	}

	var e Embedder = base
	remote := cfg.Provider == ProviderGemini || cfg.Provider == ProviderOpenAI
	if remote && cfg.RequestsPerSecond > 0 {
		e = NewRateLimited(e, cfg.RequestsPerSecond, 1)
	}
	if cfg.CacheSize > 0 {
		e = NewCachedEmbedder(e, cfg.CacheSize)
	}
	return e, nil
}

func newProvider(ctx context.Context, cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	switch cfg.Provider {
	case ProviderONNX, "":
		onnx, err := NewONNXEmbedder(ONNXConfig{
			ModelPath:  cfg.ModelPath,
			Dimensions: cfg.Dimensions,
			MaxTokens:  cfg.MaxTokens,
		})
		if err != nil {
			logger.Warn("ONNX embedder unavailable, using mock embeddings",
				zap.String("model_path", cfg.ModelPath), zap.Error(err))
			return NewMockEmbedder(cfg.Dimensions), nil
		}
		return onnx, nil
	case ProviderGemini:
		g, err := NewGeminiEmbedder(ctx, GeminiConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	case ProviderOpenAI:
		o, err := NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return o, nil
	case ProviderMock:
		return NewMockEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}
