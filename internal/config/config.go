package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"document-indexer/internal/models"
)

var ErrMissingConfig = errors.New("missing required configuration")

const (
	SinkPostgres = "postgres"
	SinkChromem  = "chromem"

	DriverPG = "pg"
	DriverPQ = "postgres"

	ProviderVertex = "vertex"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Environment variables read on top of the YAML file.
const (
	EnvProject           = "GOOGLE_CLOUD_PROJECT"
	EnvLocation          = "GOOGLE_CLOUD_LOCATION"
	EnvPostgresURL       = "POSTGRES_URL"
	EnvEmbeddingProvider = "EMBEDDING_PROVIDER"
	EnvEmbeddingModel    = "EMBEDDING_MODEL"
	EnvEmbeddingAPIKey   = "EMBEDDING_API_KEY"
	EnvEmbeddingBaseURL  = "EMBEDDING_BASE_URL"
	EnvLogLevel          = "LOG_LEVEL"
	EnvLogFile           = "LOG_FILE"
)

type LLMConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	ProjectID string `yaml:"project_id"`
	Location  string `yaml:"location"`
	BaseURL   string `yaml:"base_url"`
	Key       string `yaml:"key"`
}

type DatabaseConfig struct {
	URL         string `yaml:"url"`
	Driver      string `yaml:"driver"`
	Table       string `yaml:"table"`
	CreateTable bool   `yaml:"create_table"`
	Debug       bool   `yaml:"debug"`
}

type ChromemConfig struct {
	Path          string `yaml:"path"`
	Collection    string `yaml:"collection"`
	Compress      bool   `yaml:"compress"`
	EncryptionKey string `yaml:"encryption_key"`
}

type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Config struct {
	Sink     string         `yaml:"sink"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	Database DatabaseConfig `yaml:"database"`
	Chromem  ChromemConfig  `yaml:"chromem"`
	Chunking ChunkingConfig `yaml:"chunking"`
	Log      LogConfig      `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// LoadConfig reads the YAML file at path, loads a .env file from the working
// directory if one exists, and lets environment variables override both. A
// missing config file is not an error.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	applyEnv(&cfg, os.LookupEnv)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&cfg.EmbedLLM.ProjectID, EnvProject)
	set(&cfg.EmbedLLM.Location, EnvLocation)
	set(&cfg.EmbedLLM.Provider, EnvEmbeddingProvider)
	set(&cfg.EmbedLLM.Model, EnvEmbeddingModel)
	set(&cfg.EmbedLLM.Key, EnvEmbeddingAPIKey)
	set(&cfg.EmbedLLM.BaseURL, EnvEmbeddingBaseURL)
	set(&cfg.Database.URL, EnvPostgresURL)
	set(&cfg.Log.Level, EnvLogLevel)
	set(&cfg.Log.File, EnvLogFile)
}

func applyDefaults(cfg *Config) {
	if cfg.Sink == "" {
		cfg.Sink = SinkPostgres
	}
	if cfg.EmbedLLM.Provider == "" {
		cfg.EmbedLLM.Provider = models.DefaultEmbeddingProvider
	}
	if cfg.EmbedLLM.Provider == ProviderVertex {
		if cfg.EmbedLLM.Model == "" {
			cfg.EmbedLLM.Model = models.DefaultEmbeddingModel
		}
		if cfg.EmbedLLM.Location == "" {
			cfg.EmbedLLM.Location = models.DefaultLocation
		}
	}
	if cfg.EmbedLLM.Dimension == 0 {
		cfg.EmbedLLM.Dimension = models.VectorSize
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverPG
	}
	if cfg.Database.Table == "" {
		cfg.Database.Table = models.DefaultTable
	}
	if cfg.Chromem.Collection == "" {
		cfg.Chromem.Collection = models.DefaultCollection
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = models.DefaultChunkSize
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = models.DefaultChunkOverlap
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate checks everything an indexing run needs before any file is read
// or any network call is made. All missing settings are reported together.
func (c *Config) Validate() error {
	var missing []string
	missing = append(missing, c.EmbedLLM.missing()...)

	switch c.Sink {
	case SinkPostgres:
		if c.Database.URL == "" {
			missing = append(missing, EnvPostgresURL)
		}
		if c.Database.Driver != DriverPG && c.Database.Driver != DriverPQ {
			return fmt.Errorf("unknown database driver %q (use %s or %s)", c.Database.Driver, DriverPG, DriverPQ)
		}
	case SinkChromem:
		if c.Chromem.Path == "" {
			missing = append(missing, "chromem.path")
		}
	default:
		return fmt.Errorf("unknown sink %q (use %s or %s)", c.Sink, SinkPostgres, SinkChromem)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}

// Validate checks the provider-specific credentials of the embedding model.
func (c *LLMConfig) Validate() error {
	if missing := c.missing(); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}

func (c *LLMConfig) missing() []string {
	var missing []string
	switch c.Provider {
	case ProviderVertex:
		if c.ProjectID == "" {
			missing = append(missing, EnvProject)
		}
	case ProviderOpenAI:
		if c.Key == "" {
			missing = append(missing, EnvEmbeddingAPIKey)
		}
		if c.Model == "" {
			missing = append(missing, EnvEmbeddingModel)
		}
	case ProviderOllama:
		if c.BaseURL == "" {
			missing = append(missing, EnvEmbeddingBaseURL)
		}
		if c.Model == "" {
			missing = append(missing, EnvEmbeddingModel)
		}
	default:
		missing = append(missing, fmt.Sprintf("%s (unknown provider %q)", EnvEmbeddingProvider, c.Provider))
	}
	return missing
}
