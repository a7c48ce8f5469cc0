//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

var errNoONNX = errors.New("ONNX embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// ONNXConfig configures the local sentence-transformer model.
type ONNXConfig struct {
	ModelPath  string
	Dimensions int
	MaxTokens  int
}

// ONNXEmbedder stub type when built without CGO (see onnx.go for real implementation).
type ONNXEmbedder struct{}

// NewONNXEmbedder returns an error when built without CGO (ONNX not available).
func NewONNXEmbedder(_ ONNXConfig) (*ONNXEmbedder, error) {
	return nil, errNoONNX
}

// Embed is not available without CGO.
func (e *ONNXEmbedder) Embed(context.Context, string) ([]float32, error) { return nil, errNoONNX }

// EmbedBatch is not available without CGO.
func (e *ONNXEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errNoONNX
}

// Dimensions returns 0 without CGO.
func (e *ONNXEmbedder) Dimensions() int { return 0 }

// Close is a no-op without CGO.
func (e *ONNXEmbedder) Close() error { return nil }
