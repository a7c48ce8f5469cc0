package matcher

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/kouho/internal/keyword"
	"github.com/hyperjump/kouho/internal/models"
	"github.com/hyperjump/kouho/internal/textnorm"
	"github.com/hyperjump/kouho/pkg/utils"
	"go.uber.org/zap"
)

// scorePlaces is the number of decimals scores are rounded to in responses.
const scorePlaces = 3

// logExcerptLen caps how much of a job description is written to debug logs.
const logExcerptLen = 80

// Rank returns the stored resumes most similar to the job description.
func (s *Service) Rank(ctx context.Context, req models.RankRequest) (*models.RankResponse, error) {
	start := time.Now()
	if err := req.Validate(s.ranking.MaxTopK); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyText, err)
	}
	cleaned := textnorm.Clean(req.Text)
	vec, err := s.embedder.Embed(ctx, cleaned)
	if err != nil {
		return nil, fmt.Errorf("embed job description: %w", err)
	}
	topK := s.ranking.ClampTopK(req.TopK)
	matches, err := s.index.Rank(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}

	results := make([]models.RankResult, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		results = append(results, models.RankResult{
			Rank:     m.Rank,
			Filename: m.ID,
			Score:    utils.Round(m.Score, scorePlaces),
		})
	}
	s.logger.Debug("rank", zap.String("job", utils.Truncate(cleaned, logExcerptLen)),
		zap.Int("top_k", topK), zap.Int("results", len(results)))
	return &models.RankResponse{
		Results:   results,
		QueryTime: time.Since(start).Milliseconds(),
	}, nil
}

// Explain lists, for every stored resume, the keywords it shares with the job
// description. It reads the store only; the vector index is not consulted.
func (s *Service) Explain(ctx context.Context, req models.ExplainRequest) (*models.ExplainResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyText, err)
	}
	resumes, err := s.store.ListResumes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	if len(resumes) == 0 {
		return &models.ExplainResponse{Explanations: []models.Explanation{}, Message: MessageNoResumes}, nil
	}
	docs := make([]keyword.Document, len(resumes))
	for i, r := range resumes {
		docs[i] = keyword.Document{Filename: r.Filename, Text: r.Text}
	}
	explained := s.explainer.Explain(req.Text, docs)
	out := make([]models.Explanation, len(explained))
	for i, e := range explained {
		out[i] = models.Explanation{
			Filename:        e.Filename,
			MatchedKeywords: e.MatchedKeywords,
			Summary:         keyword.Summary(e.MatchedKeywords),
		}
	}
	return &models.ExplainResponse{Explanations: out}, nil
}
