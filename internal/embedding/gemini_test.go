package embedding

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"
)

type fakeGeminiModels struct {
	model    string
	config   *genai.EmbedContentConfig
	contents []*genai.Content
	resp     *genai.EmbedContentResponse
	err      error
}

func (f *fakeGeminiModels) EmbedContent(_ context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func TestGeminiEmbedder_EmbedBatch(t *testing.T) {
	fake := &fakeGeminiModels{resp: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{
			{Values: []float32{1, 0, 0}},
			{Values: []float32{0, 1, 0}},
		},
	}}
	g, err := newGeminiEmbedder(fake, "", 3)
	if err != nil {
		t.Fatal(err)
	}
	vecs, err := g.EmbedBatch(context.Background(), []string{"job", "resume"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 2 || vecs[1][1] != 1 {
		t.Errorf("vecs = %v", vecs)
	}
	if fake.model != defaultGeminiModel {
		t.Errorf("model = %s", fake.model)
	}
	if fake.config == nil || fake.config.OutputDimensionality == nil || *fake.config.OutputDimensionality != 3 {
		t.Errorf("output dimensionality not requested: %+v", fake.config)
	}
	if len(fake.contents) != 2 || fake.contents[0].Parts[0].Text != "job" {
		t.Errorf("contents not sent in order")
	}
}

func TestGeminiEmbedder_Errors(t *testing.T) {
	ctx := context.Background()

	wrongDim := &fakeGeminiModels{resp: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{1, 0}}},
	}}
	g, _ := newGeminiEmbedder(wrongDim, "m", 3)
	if _, err := g.Embed(ctx, "x"); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}

	short := &fakeGeminiModels{resp: &genai.EmbedContentResponse{}}
	g, _ = newGeminiEmbedder(short, "m", 3)
	if _, err := g.Embed(ctx, "x"); err == nil {
		t.Error("expected error for missing embeddings")
	}

	apiErr := &fakeGeminiModels{err: genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}}
	g, _ = newGeminiEmbedder(apiErr, "m", 3)
	if _, err := g.Embed(ctx, "x"); err == nil {
		t.Error("expected API error")
	}

	if _, err := newGeminiEmbedder(short, "m", 0); err == nil {
		t.Error("expected error for zero dimensions")
	}
	if _, err := NewGeminiEmbedder(ctx, GeminiConfig{Dimensions: 3}); err == nil {
		t.Error("expected error for missing api key")
	}
}

func TestGeminiEmbedder_EmptyBatch(t *testing.T) {
	fake := &fakeGeminiModels{}
	g, _ := newGeminiEmbedder(fake, "m", 3)
	vecs, err := g.EmbedBatch(context.Background(), nil)
	if err != nil || len(vecs) != 0 {
		t.Errorf("EmbedBatch(nil) = %v, %v", vecs, err)
	}
	if fake.contents != nil {
		t.Error("no request should be sent for an empty batch")
	}
}
