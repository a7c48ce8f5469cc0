package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/kouho/internal/config"
	"github.com/hyperjump/kouho/internal/embedding"
	"github.com/hyperjump/kouho/internal/keyword"
	"github.com/hyperjump/kouho/internal/matcher"
	"github.com/hyperjump/kouho/internal/storage"
	"github.com/hyperjump/kouho/internal/vector"
	"github.com/hyperjump/kouho/pkg/utils"
	"go.uber.org/zap"
)

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory takes precedence (for development), and a missing default file
// means built-in defaults. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// setup loads config and creates the logger; --debug is OR-ed with the config value.
func setup(opts *rootOptions) (*config.Config, *zap.Logger, error) {
	cfg, resolved, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Debug = cfg.Debug || opts.debug
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", cfg.Debug))
	return cfg, logger, nil
}

// Components holds initialized services.
type Components struct {
	Storage  storage.Storage
	Embedder embedding.Embedder
	Index    *vector.Index
	Matcher  *matcher.Service
}

// Close releases every component.
func (c *Components) Close() {
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Storage = store

	embedder, err := embedding.NewFromConfig(ctx, cfg.Embedding, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c.Embedder = embedder

	indexOpts := []vector.Option{vector.WithPath(cfg.Storage.IndexPath), vector.WithLogger(logger)}
	index, err := vector.New(cfg.Vector.IndexType, cfg.Embedding.Dimensions, indexOpts...)
	if err != nil && cfg.Vector.IndexType != string(vector.StructureFlat) {
		// Fall back to the flat structure if the configured one fails (e.g., FAISS not available).
		logger.Warn("failed to create vector index, falling back to flat",
			zap.String("requested_type", cfg.Vector.IndexType), zap.Error(err))
		index, err = vector.New(string(vector.StructureFlat), cfg.Embedding.Dimensions, indexOpts...)
	}
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	c.Index = index
	logger.Info("vector index initialized",
		zap.String("type", index.Type()),
		zap.Int("size", index.Size()),
		zap.Bool("faiss_available", vector.IsFAISSAvailable()))

	explainer, err := keyword.NewExplainer(cfg.Explain.Stopwords, cfg.Explain.MaxKeywords)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize explainer: %w", err)
	}

	svc, err := matcher.NewService(store, embedder, index, explainer,
		matcher.WithLogger(logger),
		matcher.WithUploadDir(cfg.Storage.UploadDir),
		matcher.WithRanking(cfg.Ranking),
		matcher.WithProvider(cfg.Embedding.Provider),
		matcher.WithDiskPaths(diskPaths(cfg.Storage)...),
	)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Matcher = svc
	return c, nil
}

// diskPaths lists the files and directories counted by status.
func diskPaths(st config.StorageConfig) []string {
	paths := []string{st.DatabasePath, st.UploadDir}
	if st.IndexPath != "" {
		paths = append(paths, st.IndexPath+".index", st.IndexPath+".ids")
	}
	return paths
}
