package matcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hyperjump/kouho/internal/fileid"
	"github.com/hyperjump/kouho/internal/models"
	"github.com/hyperjump/kouho/internal/textnorm"
	"github.com/hyperjump/kouho/internal/vector"
	"go.uber.org/zap"
)

// UploadInput is a resume to add. Content is the raw file; when it is nil, Text is
// used as-is and a missing Filename is generated.
type UploadInput struct {
	Filename string
	Content  []byte
	Text     string
	// SourcePath is set for files picked up from a watched directory. Such files are
	// not copied into the upload directory.
	SourcePath string
}

// Upload extracts, cleans, embeds and stores a resume, then adds it to the index.
// Returns ErrAlreadyExists when the filename is already stored.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*models.UploadResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploadLocked(ctx, in)
}

func (s *Service) uploadLocked(ctx context.Context, in UploadInput) (*models.UploadResponse, error) {
	name := in.Filename
	if name == "" && in.Content == nil {
		name = uuid.NewString() + ".txt"
	}
	id, err := fileid.ResumeID(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}

	exists, err := s.store.ResumeExists(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("check existing resume: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, id)
	}

	p, err := s.prepare(ctx, id, in)
	if err != nil {
		return nil, err
	}
	return s.commitLocked(ctx, p)
}

// prepared is an upload that has been extracted, cleaned and embedded but not stored.
type prepared struct {
	id     string
	in     UploadInput
	raw    []byte
	text   string
	vector []float32
}

// prepare does every step of an upload that can fail on bad input or a provider
// error, without touching the store or the index.
func (s *Service) prepare(ctx context.Context, id string, in UploadInput) (*prepared, error) {
	raw := in.Content
	text := in.Text
	if raw != nil {
		var err error
		text, err = s.extractor.ExtractBytes(raw, filepath.Ext(id))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUnreadable, id, err)
		}
	} else {
		raw = []byte(text)
	}
	cleaned := textnorm.Clean(text)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyText, id)
	}
	vec, err := s.embedder.Embed(ctx, cleaned)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", id, err)
	}
	return &prepared{id: id, in: in, raw: raw, text: cleaned, vector: vec}, nil
}

// commitLocked saves the raw upload, stores the resume and adds it to the index. An
// index failure other than a snapshot write rolls back the store row and the file.
func (s *Service) commitLocked(ctx context.Context, p *prepared) (*models.UploadResponse, error) {
	var err error
	saved := ""
	if p.in.SourcePath == "" && s.uploadDir != "" && p.in.Content != nil {
		if saved, err = s.saveUpload(p.id, p.raw); err != nil {
			return nil, err
		}
	}
	source := p.in.SourcePath
	if source == "" {
		source = saved
	}
	resume := &models.Resume{
		Filename:   p.id,
		Text:       p.text,
		SourcePath: source,
		Checksum:   fileid.Checksum(p.raw),
	}
	if err := s.store.UpsertResume(ctx, resume); err != nil {
		s.removeUpload(saved)
		return nil, fmt.Errorf("store resume: %w", err)
	}

	resp := &models.UploadResponse{Filename: p.id, Message: MessageUploaded, Indexed: true}
	_, err = s.index.Add(ctx, []vector.Record{{ID: p.id, Vector: p.vector}})
	if resp.Warning, err = s.persistWarning("add", err); err != nil {
		// The store must not hold a resume the index rejected.
		if _, delErr := s.store.DeleteResume(ctx, p.id); delErr != nil {
			s.logger.Error("rollback of stored resume failed", zap.String("filename", p.id), zap.Error(delErr))
		}
		s.removeUpload(saved)
		return nil, fmt.Errorf("index resume: %w", err)
	}
	s.logger.Debug("resume uploaded", zap.String("filename", p.id), zap.Int("chars", len(p.text)))
	return resp, nil
}

func (s *Service) saveUpload(id string, content []byte) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(s.uploadDir, id)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return path, nil
}

func (s *Service) removeUpload(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("failed to remove uploaded file", zap.String("path", path), zap.Error(err))
	}
}
