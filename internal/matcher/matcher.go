// Package matcher ties the resume store, the embedding provider, the vector index and
// the keyword explainer together. Every mutation goes to the store first; the vector
// index is derived from it and rebuilt from it at startup.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hyperjump/kouho/internal/config"
	"github.com/hyperjump/kouho/internal/embedding"
	"github.com/hyperjump/kouho/internal/extract"
	"github.com/hyperjump/kouho/internal/keyword"
	"github.com/hyperjump/kouho/internal/storage"
	"github.com/hyperjump/kouho/internal/vector"
	"go.uber.org/zap"
)

var (
	// ErrAlreadyExists is returned when uploading a filename that is already stored.
	ErrAlreadyExists = errors.New("resume already exists")
	// ErrEmptyText is returned when a resume or job description has no text after cleaning.
	ErrEmptyText = errors.New("no text content")
	// ErrUnreadable is returned when an uploaded file cannot be parsed as its extension claims.
	ErrUnreadable = errors.New("unreadable resume file")
	// ErrInvalidFilename is returned when a filename cannot be used as an identifier.
	ErrInvalidFilename = errors.New("invalid filename")
	// ErrNotFound is returned when a resume is not stored.
	ErrNotFound = storage.ErrNotFound
)

// Messages shared with the HTTP API.
const (
	MessageUploaded    = "Resume uploaded and indexed successfully"
	MessageExists      = "Resume already exists"
	MessageNotFound    = "Resume not found"
	MessageNoResumes   = "No resumes found. Upload resumes first."
	messageDeletedTmpl = "%s deleted successfully"
)

// Service implements upload, rank, delete, explain and rebuild over the resume store
// and the vector index.
type Service struct {
	store     storage.Storage
	embedder  embedding.Embedder
	index     *vector.Index
	explainer *keyword.Explainer
	extractor *extract.Extractor

	uploadDir string
	ranking   config.RankingConfig
	provider  string
	diskPaths []string
	logger    *zap.Logger

	// mu serialises store+index mutations so a resume is never half uploaded while it
	// is being deleted. Rank and Explain do not take it.
	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithUploadDir sets the directory raw uploads are saved to. Empty disables saving.
func WithUploadDir(dir string) Option {
	return func(s *Service) { s.uploadDir = dir }
}

// WithRanking sets the default and maximum top_k.
func WithRanking(r config.RankingConfig) Option {
	return func(s *Service) { s.ranking = r }
}

// WithProvider records the embedding provider name reported by Status.
func WithProvider(name string) Option {
	return func(s *Service) { s.provider = name }
}

// WithDiskPaths sets the files and directories Status sums for disk usage.
func WithDiskPaths(paths ...string) Option {
	return func(s *Service) { s.diskPaths = paths }
}

// WithExtractor replaces the default extractor.
func WithExtractor(e *extract.Extractor) Option {
	return func(s *Service) { s.extractor = e }
}

// NewService creates a service. The index must have the embedder's dimension.
func NewService(
	store storage.Storage,
	embedder embedding.Embedder,
	index *vector.Index,
	explainer *keyword.Explainer,
	opts ...Option,
) (*Service, error) {
	if embedder.Dimensions() != index.Dimensions() {
		return nil, fmt.Errorf("%w: embedder has %d, index has %d",
			vector.ErrDimensionMismatch, embedder.Dimensions(), index.Dimensions())
	}
	s := &Service{
		store:     store,
		embedder:  embedder,
		index:     index,
		explainer: explainer,
		extractor: extract.NewExtractor(),
		ranking:   config.RankingConfig{DefaultTopK: vector.DefaultTopK},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start rebuilds the vector index from the store.
func (s *Service) Start(ctx context.Context) error {
	resp, err := s.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("startup rebuild: %w", err)
	}
	s.logger.Info("vector index rebuilt from store", zap.Int("resumes", resp.Indexed))
	return nil
}

// persistWarning turns a snapshot write failure into a warning string and logs it.
// Any other error is returned unchanged.
func (s *Service) persistWarning(op string, err error) (string, error) {
	if err == nil {
		return "", nil
	}
	if vector.IsPersistError(err) {
		s.logger.Warn("vector index snapshot not saved", zap.String("op", op), zap.Error(err))
		return "index snapshot not saved: " + err.Error(), nil
	}
	return "", err
}
