package matcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/kouho/internal/fileid"
	"go.uber.org/zap"
)

// Sync uploads the file at path, identified by its base name. A stored resume with the
// same checksum is left alone; a changed one is replaced once its new content has been
// extracted and embedded. A resume of the same name from another source (a manual
// upload or another watched file) is never replaced.
func (s *Service) Sync(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("read %s: %w", abs, err)
	}
	id, err := fileid.ResumeID(abs)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, abs)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.store.GetResume(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		if _, err := s.uploadLocked(ctx, UploadInput{Filename: id, Content: content, SourcePath: abs}); err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("get resume: %w", err)
	case existing.SourcePath != abs:
		s.logger.Warn("resume name taken by another source, not syncing",
			zap.String("filename", id), zap.String("path", abs), zap.String("stored_source", existing.SourcePath))
		return nil
	case existing.Checksum == fileid.Checksum(content):
		s.logger.Debug("skipping unchanged resume", zap.String("path", abs))
		return nil
	default:
		// The stored resume stays until the new content is known to be usable.
		p, err := s.prepare(ctx, id, UploadInput{Filename: id, Content: content, SourcePath: abs})
		if err != nil {
			return fmt.Errorf("replace %s: %w", id, err)
		}
		if _, err := s.deleteLocked(ctx, id); err != nil {
			return fmt.Errorf("replace %s: %w", id, err)
		}
		if _, err := s.commitLocked(ctx, p); err != nil {
			return fmt.Errorf("replace %s: %w", id, err)
		}
	}
	s.logger.Info("resume synced", zap.String("filename", id), zap.String("path", abs))
	return nil
}

// Forget deletes the resume that was synced from path. Resumes with the same name from
// another source are kept.
func (s *Service) Forget(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	id, err := fileid.ResumeID(abs)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, abs)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.store.GetResume(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get resume: %w", err)
	}
	if existing.SourcePath != abs {
		return nil
	}
	if _, err := s.deleteLocked(ctx, id); err != nil {
		return err
	}
	s.logger.Info("resume removed", zap.String("filename", id), zap.String("path", abs))
	return nil
}
