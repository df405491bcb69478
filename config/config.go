package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the document chat core.
type Config struct {
	Chunk      ChunkConfig      `yaml:"chunk"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Answer     AnswerConfig     `yaml:"answer"`
	Storage    StorageConfig    `yaml:"storage"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ChunkConfig holds text segmentation configuration.
type ChunkConfig struct {
	Size    int `yaml:"size"`    // target chunk size in characters
	Overlap int `yaml:"overlap"` // overlap between consecutive chunks
}

// EmbeddingConfig holds embedding model configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "openai", "ollama", "mock"
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// GenerationConfig selects and configures the generation backend.
type GenerationConfig struct {
	Provider    string       `yaml:"provider"` // "openai", "ollama", "mock"
	Model       string       `yaml:"model"`
	APIKeyEnv   string       `yaml:"api_key_env"`
	BaseURL     string       `yaml:"base_url"`
	TimeoutSecs int          `yaml:"timeout_secs"`
	Router      RouterConfig `yaml:"router"`
}

// RouterConfig configures keyword routing between the hosted and the
// local backend. Disabled by default; when enabled, questions matching
// a keyword go to the hosted backend.
type RouterConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Keywords []string `yaml:"keywords"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK      int `yaml:"top_k"`
	CacheSize int `yaml:"cache_size"`
}

// AnswerConfig holds answer post-processing configuration.
type AnswerConfig struct {
	MaxLines int    `yaml:"max_lines"`
	Fallback string `yaml:"fallback"`
}

// StorageConfig holds index persistence configuration. When Bucket is
// empty the index lives on the local filesystem only.
type StorageConfig struct {
	Dir    string `yaml:"dir"`
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// IngestConfig holds bulk ingestion configuration.
type IngestConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
	Dedupe   bool     `yaml:"dedupe"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Chunk: ChunkConfig{
			Size:    500,
			Overlap: 100,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 1536,
			BatchSize: 100,
		},
		Generation: GenerationConfig{
			Provider:    "openai",
			Model:       "gpt-3.5-turbo",
			APIKeyEnv:   "OPENAI_API_KEY",
			TimeoutSecs: 30,
			Router: RouterConfig{
				Enabled:  false,
				Keywords: []string{"要約", "まとめ", "なぜ", "理由", "背景", "仕組み", "ポイント", "問題点", "改善"},
			},
		},
		Retrieve: RetrieveConfig{
			TopK:      3,
			CacheSize: 100,
		},
		Answer: AnswerConfig{
			MaxLines: 20,
			Fallback: "The answer could not be generated right now. Please try again later.",
		},
		Storage: StorageConfig{
			Dir:    "vectorstore",
			Prefix: "docchat/",
		},
		Ingest: IngestConfig{
			Includes: []string{"**/*.pdf", "**/*.PDF"},
			Excludes: []string{"**/.*/**"},
			Dedupe:   false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, merged over defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for docchat.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docchat.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".docchat", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	cfg := DefaultConfig()
	cfg.applyEnv()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnv applies recognized environment overrides. Every option keeps
// its default when the variable is unset.
func (c *Config) applyEnv() {
	if v := os.Getenv("DOCCHAT_USE_LOCAL_LLM"); strings.EqualFold(v, "true") {
		c.Generation.Provider = "ollama"
	}
	if v := os.Getenv("DOCCHAT_GENERATION_PROVIDER"); v != "" {
		c.Generation.Provider = v
	}
	if v := os.Getenv("DOCCHAT_EMBEDDING_PROVIDER"); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv("DOCCHAT_STORAGE_BUCKET"); v != "" {
		c.Storage.Bucket = v
	}
	if v := os.Getenv("DOCCHAT_STORAGE_DIR"); v != "" {
		c.Storage.Dir = v
	}
}

// IndexDir returns the directory holding the persisted index artifacts.
func (c *Config) IndexDir(root string) string {
	if filepath.IsAbs(c.Storage.Dir) {
		return c.Storage.Dir
	}
	return filepath.Join(root, c.Storage.Dir)
}
