// Package storage defines the persistence interface for resumes.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/kouho/internal/models"
)

// ErrNotFound is returned when a resume does not exist.
var ErrNotFound = errors.New("resume not found")

// Storage defines resume persistence operations. The store is authoritative: the vector
// index is derived from it and can always be rebuilt from ListResumes.
type Storage interface {
	// UpsertResume inserts the resume or replaces the text of an existing one.
	UpsertResume(ctx context.Context, r *models.Resume) error
	GetResume(ctx context.Context, filename string) (*models.Resume, error)
	ResumeExists(ctx context.Context, filename string) (bool, error)
	// DeleteResume reports whether a row was removed.
	DeleteResume(ctx context.Context, filename string) (bool, error)
	// ListResumes returns every resume ordered by filename.
	ListResumes(ctx context.Context) ([]*models.Resume, error)
	ListFilenames(ctx context.Context) ([]string, error)
	CountResumes(ctx context.Context) (int64, error)

	Close() error
}
