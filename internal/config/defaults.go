package config

// DefaultStopwords are ignored when computing keyword overlap.
var DefaultStopwords = []string{
	"a", "an", "the", "and", "or", "for", "with", "to", "of", "in", "on", "is", "are", "was", "were",
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kouho/data/db/resumes.db"
	}
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = "/usr/local/var/kouho/data/indices/resumes"
	}
	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = "/usr/local/var/kouho/data/uploads"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/kouho/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.Model == "" {
		switch cfg.Embedding.Provider {
		case "gemini":
			cfg.Embedding.Model = "gemini-embedding-001"
		case "openai":
			cfg.Embedding.Model = "text-embedding-3-small"
		}
	}
	if cfg.Vector.IndexType == "" {
		cfg.Vector.IndexType = "flat"
	}
	if cfg.Ranking.DefaultTopK == 0 {
		cfg.Ranking.DefaultTopK = 5
	}
	if cfg.Ranking.MaxTopK == 0 {
		cfg.Ranking.MaxTopK = 100
	}
	if cfg.Explain.MaxKeywords == 0 {
		cfg.Explain.MaxKeywords = 10
	}
	if cfg.Explain.Stopwords == nil {
		cfg.Explain.Stopwords = append([]string(nil), DefaultStopwords...)
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".pdf", ".docx", ".odt", ".xlsx"}
	}
}
