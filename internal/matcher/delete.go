package matcher

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hyperjump/kouho/internal/fileid"
	"github.com/hyperjump/kouho/internal/models"
	"go.uber.org/zap"
)

// Delete removes a resume from the store and the index, and deletes its uploaded file.
// Returns ErrNotFound when the filename is not stored.
func (s *Service) Delete(ctx context.Context, filename string) (*models.DeleteResponse, error) {
	id, err := fileid.ResumeID(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(ctx, id)
}

func (s *Service) deleteLocked(ctx context.Context, id string) (*models.DeleteResponse, error) {
	deleted, err := s.store.DeleteResume(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delete resume: %w", err)
	}
	if !deleted {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	resp := &models.DeleteResponse{Filename: id, Message: fmt.Sprintf(messageDeletedTmpl, id)}
	removed, err := s.index.Remove(ctx, id)
	if resp.Warning, err = s.persistWarning("remove", err); err != nil {
		return nil, fmt.Errorf("remove from index: %w", err)
	}
	if !removed {
		s.logger.Warn("stored resume was missing from the vector index", zap.String("filename", id))
	}
	if s.uploadDir != "" {
		s.removeUpload(filepath.Join(s.uploadDir, id))
	}
	s.logger.Debug("resume deleted", zap.String("filename", id))
	return resp, nil
}
