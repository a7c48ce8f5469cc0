//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/kouho/pkg/utils"
)

// ONNXConfig configures the local sentence-transformer model.
type ONNXConfig struct {
	ModelPath  string
	Dimensions int
	MaxTokens  int
}

// ONNXEmbedder uses ONNX Runtime to produce embeddings. It requires CGO and the
// onnxruntime shared library. The model must expose input_ids, attention_mask and
// token_type_ids inputs and a pooled (1, dimensions) "output".
type ONNXEmbedder struct {
	session    *ort.AdvancedSession
	dimensions int
	maxTokens  int
	tokenizer  Tokenizer
	// Pre-allocated tensors bound to the session; Run reads and writes them in place.
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXEmbedder loads the model. InitializeEnvironment is called if not already done.
func NewONNXEmbedder(cfg ONNXConfig) (*ONNXEmbedder, error) {
	if cfg.Dimensions <= 0 || cfg.MaxTokens <= 0 {
		return nil, fmt.Errorf("onnx dimensions and max tokens must be positive")
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	e := &ONNXEmbedder{
		dimensions: cfg.Dimensions,
		maxTokens:  cfg.MaxTokens,
		tokenizer:  &SimpleTokenizer{},
	}
	inputIDs, attentionMask, tokenTypeIDs := e.tokenizer.Tokenize("", cfg.MaxTokens)
	shape := ort.NewShape(1, int64(cfg.MaxTokens))

	var err error
	if e.inputIDsTensor, err = ort.NewTensor(shape, inputIDs); err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	if e.attentionMaskTensor, err = ort.NewTensor(shape, attentionMask); err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	if e.tokenTypeIDsTensor, err = ort.NewTensor(shape, tokenTypeIDs); err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	if e.outputTensor, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(cfg.Dimensions))); err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	e.session, err = ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"output"},
		[]ort.ArbitraryTensor{e.inputIDsTensor, e.attentionMaskTensor, e.tokenTypeIDsTensor},
		[]ort.ArbitraryTensor{e.outputTensor},
		nil,
	)
	if err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return e, nil
}

// Embed runs the model on text and returns the unit-length embedding.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	inputIDs, attentionMask, tokenTypeIDs := e.tokenizer.Tokenize(text, e.maxTokens)
	copy(e.inputIDsTensor.GetData(), inputIDs)
	copy(e.attentionMaskTensor.GetData(), attentionMask)
	copy(e.tokenTypeIDsTensor.GetData(), tokenTypeIDs)

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	embedding := make([]float32, e.dimensions)
	copy(embedding, e.outputTensor.GetData())
	utils.NormalizeL2(embedding)
	return embedding, nil
}

// EmbedBatch calls Embed for each text.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.inputIDsTensor != nil {
		_ = e.inputIDsTensor.Destroy()
	}
	if e.attentionMaskTensor != nil {
		_ = e.attentionMaskTensor.Destroy()
	}
	if e.tokenTypeIDsTensor != nil {
		_ = e.tokenTypeIDsTensor.Destroy()
	}
	if e.outputTensor != nil {
		_ = e.outputTensor.Destroy()
	}
	e.inputIDsTensor, e.attentionMaskTensor, e.tokenTypeIDsTensor, e.outputTensor = nil, nil, nil, nil
	return err
}
