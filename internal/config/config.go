// Package config provides configuration loading and structs for the kouho server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Explain   ExplainConfig   `yaml:"explain"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds paths for the resume database, the vector index snapshot and
// uploaded resume files.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	// IndexPath is the snapshot base path; ".index" and ".ids" are appended.
	IndexPath string `yaml:"index_path"`
	UploadDir string `yaml:"upload_dir"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is one of onnx, gemini, openai, mock.
	Provider   string `yaml:"provider"`
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`

	// Remote providers.
	APIKey            string  `yaml:"api_key"`
	Model             string  `yaml:"model"`
	BaseURL           string  `yaml:"base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// VectorConfig selects the search structure behind the index.
type VectorConfig struct {
	IndexType string `yaml:"index_type"`
}

// RankingConfig bounds the number of matches returned.
type RankingConfig struct {
	DefaultTopK int `yaml:"default_top_k"`
	MaxTopK     int `yaml:"max_top_k"`
}

// ClampTopK applies the default to non-positive values and caps at MaxTopK.
func (r RankingConfig) ClampTopK(topK int) int {
	if topK <= 0 {
		topK = r.DefaultTopK
	}
	if r.MaxTopK > 0 && topK > r.MaxTopK {
		topK = r.MaxTopK
	}
	return topK
}

// ExplainConfig configures keyword overlap explanations.
type ExplainConfig struct {
	MaxKeywords int      `yaml:"max_keywords"`
	Stopwords   []string `yaml:"stopwords"`
}

// WatchConfig holds inbox directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to false when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return false
}

// Load reads and parses the config file at path, expands paths, applies environment
// overrides and defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.IndexPath = expandPath(cfg.Storage.IndexPath, configDir)
	cfg.Storage.UploadDir = expandPath(cfg.Storage.UploadDir, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with every default applied, for running without a file.
func Default() *Config {
	var cfg Config
	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)
	return &cfg
}

// ApplyEnv fills the embedding API key from the environment when the file leaves it
// empty. KOUHO_EMBEDDING_API_KEY wins over the provider specific variables.
func ApplyEnv(cfg *Config) {
	if cfg.Embedding.APIKey != "" {
		return
	}
	keys := []string{"KOUHO_EMBEDDING_API_KEY"}
	switch cfg.Embedding.Provider {
	case "gemini":
		keys = append(keys, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	case "openai":
		keys = append(keys, "OPENAI_API_KEY")
	}
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			cfg.Embedding.APIKey = v
			return
		}
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	switch c.Embedding.Provider {
	case "onnx", "gemini", "openai", "mock":
	default:
		return fmt.Errorf("unknown embedding provider: %s", c.Embedding.Provider)
	}
	if c.Ranking.MaxTopK < c.Ranking.DefaultTopK {
		return fmt.Errorf("ranking max_top_k (%d) is below default_top_k (%d)", c.Ranking.MaxTopK, c.Ranking.DefaultTopK)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
