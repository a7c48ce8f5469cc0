package embedding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited throttles calls to a remote embedder with a token bucket. Each Embed and
// each EmbedBatch request consumes one token.
type RateLimited struct {
	next    Embedder
	limiter *rate.Limiter
}

// NewRateLimited wraps next so that at most requestsPerSecond calls are made, with
// bursts of up to burst calls. A burst below 1 is treated as 1.
func NewRateLimited(next Embedder, requestsPerSecond float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

func (r *RateLimited) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("embedding rate limit: %w", err)
	}
	return nil
}

// Embed waits for a token then calls the wrapped embedder.
func (r *RateLimited) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.next.Embed(ctx, text)
}

// EmbedBatch waits for a token then calls the wrapped embedder.
func (r *RateLimited) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.next.EmbedBatch(ctx, texts)
}

// Dimensions returns the wrapped embedder's dimension.
func (r *RateLimited) Dimensions() int {
	return r.next.Dimensions()
}

// Close closes the wrapped embedder.
func (r *RateLimited) Close() error {
	return r.next.Close()
}
