package matcher

import (
	"context"
	"fmt"

	"github.com/hyperjump/kouho/internal/fileid"
	"github.com/hyperjump/kouho/internal/models"
	"github.com/hyperjump/kouho/internal/storage"
	"github.com/hyperjump/kouho/internal/vector"
	"go.uber.org/zap"
)

// Rebuild re-embeds every stored resume and replaces the index contents.
func (s *Service) Rebuild(ctx context.Context) (*models.RebuildResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resumes, err := s.store.ListResumes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	sources := make([]vector.Source, len(resumes))
	for i, r := range resumes {
		sources[i] = vector.Source{ID: r.Filename, Text: r.Text}
	}
	n, err := s.index.Rebuild(ctx, sources, s.embedder.Embed)
	resp := &models.RebuildResponse{Indexed: n}
	if resp.Warning, err = s.persistWarning("rebuild", err); err != nil {
		return nil, fmt.Errorf("rebuild index: %w", err)
	}
	return resp, nil
}

// List returns every stored filename.
func (s *Service) List(ctx context.Context) (*models.ResumeList, error) {
	names, err := s.store.ListFilenames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	return &models.ResumeList{Filenames: names, Total: len(names)}, nil
}

// Get returns a stored resume.
func (s *Service) Get(ctx context.Context, filename string) (*models.Resume, error) {
	id, err := fileid.ResumeID(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	return s.store.GetResume(ctx, id)
}

// Status reports store and index sizes.
func (s *Service) Status(ctx context.Context) (*models.Status, error) {
	count, err := s.store.CountResumes(ctx)
	if err != nil {
		return nil, fmt.Errorf("count resumes: %w", err)
	}
	st := &models.Status{
		Resumes:           int(count),
		Indexed:           s.index.Size(),
		Dimensions:        s.index.Dimensions(),
		IndexType:         s.index.Type(),
		EmbeddingProvider: s.provider,
	}
	if len(s.diskPaths) > 0 {
		if st.DiskUsageBytes, err = storage.DiskUsageBytes(s.diskPaths...); err != nil {
			s.logger.Debug("disk usage unavailable", zap.Error(err))
		}
	}
	return st, nil
}
