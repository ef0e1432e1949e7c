package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/viant/scy/cred/secret"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. VECRAG_STORE_DSN.
const EnvPrefix = "VECRAG"

// Config defines the store, models and retrieval settings.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Chat      ChatConfig      `yaml:"chat"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Log       LogConfig       `yaml:"log"`
}

// StoreConfig defines vector store settings.
type StoreConfig struct {
	Driver    string `yaml:"driver" split_words:"true"`
	DSN       string `yaml:"dsn" split_words:"true"`
	Secret    string `yaml:"secret,omitempty" split_words:"true"`
	Table     string `yaml:"table" split_words:"true"`
	Namespace string `yaml:"namespace" split_words:"true"`
	Distance  string `yaml:"distance" split_words:"true"`
	Dimension int    `yaml:"dimension" split_words:"true"`
}

// EmbedderConfig defines the embedding provider.
type EmbedderConfig struct {
	Provider  string `yaml:"provider" split_words:"true"`
	Model     string `yaml:"model" split_words:"true"`
	BaseURL   string `yaml:"baseURL" split_words:"true"`
	APIKey    string `yaml:"apiKey,omitempty" split_words:"true"`
	Dim       int    `yaml:"dim" split_words:"true"`
	BatchSize int    `yaml:"batchSize" split_words:"true"`
	// Project and Location address the Vertex AI endpoint.
	Project  string `yaml:"project,omitempty" split_words:"true"`
	Location string `yaml:"location,omitempty" split_words:"true"`
}

// ChatConfig defines the chat completion provider.
type ChatConfig struct {
	Provider    string   `yaml:"provider" split_words:"true"`
	Model       string   `yaml:"model" split_words:"true"`
	BaseURL     string   `yaml:"baseURL" split_words:"true"`
	APIKey      string   `yaml:"apiKey,omitempty" split_words:"true"`
	Temperature *float64 `yaml:"temperature" split_words:"true"`
	MaxTokens   int      `yaml:"maxTokens" split_words:"true"`
	Prompt      string   `yaml:"prompt" split_words:"true"`
}

// RetrievalConfig defines search defaults.
type RetrievalConfig struct {
	K              int      `yaml:"k" split_words:"true"`
	ScoreThreshold *float64 `yaml:"scoreThreshold" split_words:"true"`
	Direction      string   `yaml:"direction" split_words:"true"`
}

// IngestConfig defines file ingestion settings.
type IngestConfig struct {
	ChunkSize    int      `yaml:"chunkSize" split_words:"true"`
	BatchSize    int      `yaml:"batchSize" split_words:"true"`
	Include      []string `yaml:"include" split_words:"true"`
	Exclude      []string `yaml:"exclude" split_words:"true"`
	MaxSizeBytes int64    `yaml:"maxSizeBytes" split_words:"true"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level  string `yaml:"level" split_words:"true"`
	Format string `yaml:"format" split_words:"true"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Store:     StoreConfig{Driver: "sqlite", DSN: "~/.vecrag/vecrag.sqlite"},
		Embedder:  EmbedderConfig{Provider: "openai", BatchSize: 64},
		Chat:      ChatConfig{Provider: "openai"},
		Retrieval: RetrievalConfig{K: 4},
		Ingest:    IngestConfig{ChunkSize: 4096, BatchSize: 64},
		Log:       LogConfig{Level: "info", Format: "console"},
	}
}

// LoadConfig reads path (optional) over the defaults, applies environment
// overrides and expands DSN paths and secrets.
func LoadConfig(ctx context.Context, path string) (*Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) != "" {
		expanded, err := expandUserPath(path)
		if err != nil {
			return nil, err
		}
		b, err := os.ReadFile(expanded)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.expand(ctx); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	sections := []struct {
		prefix string
		target interface{}
	}{
		{EnvPrefix + "_STORE", &c.Store},
		{EnvPrefix + "_EMBEDDER", &c.Embedder},
		{EnvPrefix + "_CHAT", &c.Chat},
		{EnvPrefix + "_RETRIEVAL", &c.Retrieval},
		{EnvPrefix + "_INGEST", &c.Ingest},
		{EnvPrefix + "_LOG", &c.Log},
	}
	for _, section := range sections {
		if err := envconfig.Process(section.prefix, section.target); err != nil {
			return fmt.Errorf("config: %s: %w", section.prefix, err)
		}
	}
	return nil
}

func (c *Config) expand(ctx context.Context) error {
	if c.Store.DSN != "" {
		expanded, err := expandStoreDSN(c.Store.DSN, c.Store.Driver)
		if err != nil {
			return err
		}
		c.Store.DSN = expanded
	}
	if c.Store.Secret != "" {
		expanded, err := ExpandDSNWithSecret(ctx, c.Store.DSN, c.Store.Secret)
		if err != nil {
			return err
		}
		c.Store.DSN = expanded
	}
	return nil
}

// Validate checks provider names and numeric settings.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("config: unsupported store driver %q", c.Store.Driver)
	}
	switch c.Embedder.Provider {
	case "openai", "ollama", "simple":
	case "vertexai":
		if c.Embedder.Project == "" {
			return fmt.Errorf("config: embedder.project is required for vertexai")
		}
	default:
		return fmt.Errorf("config: unsupported embedder provider %q", c.Embedder.Provider)
	}
	switch c.Chat.Provider {
	case "openai":
	default:
		return fmt.Errorf("config: unsupported chat provider %q", c.Chat.Provider)
	}
	switch c.Retrieval.Direction {
	case "", "distance", "similarity":
	default:
		return fmt.Errorf("config: unsupported retrieval direction %q", c.Retrieval.Direction)
	}
	if c.Retrieval.K <= 0 {
		return fmt.Errorf("config: retrieval.k must be positive, got %d", c.Retrieval.K)
	}
	return nil
}

func expandUserPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return path, nil
	}
	if strings.HasPrefix(trimmed, "file:") {
		rest := strings.TrimPrefix(trimmed, "file:")
		if !strings.HasPrefix(rest, "~") {
			return path, nil
		}
		expanded, err := expandUserPath(rest)
		if err != nil {
			return "", err
		}
		return "file:" + filepath.ToSlash(expanded), nil
	}
	if trimmed[0] != '~' {
		return path, nil
	}
	if trimmed != "~" && !strings.HasPrefix(trimmed, "~/") {
		return "", fmt.Errorf("config: unsupported ~user path: %s", path)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if trimmed == "~" {
		return home, nil
	}
	return filepath.Join(home, trimmed[2:]), nil
}

func expandStoreDSN(dsn, driver string) (string, error) {
	if dsn == "" {
		return dsn, nil
	}
	if driver == "sqlite" || dsn[0] == '~' || strings.HasPrefix(dsn, "file:") {
		return expandUserPath(dsn)
	}
	return dsn, nil
}

// ExpandDSNWithSecret loads a secret and expands placeholders in the DSN.
func ExpandDSNWithSecret(ctx context.Context, dsn, secretRef string) (string, error) {
	secretRef = strings.TrimSpace(secretRef)
	if secretRef == "" {
		return dsn, nil
	}
	if strings.TrimSpace(dsn) == "" {
		return "", fmt.Errorf("secret %q provided but dsn is empty", secretRef)
	}
	svc := secret.New()
	sec, err := svc.Lookup(ctx, secret.Resource(secretRef))
	if err != nil {
		return "", err
	}
	return sec.Expand(dsn), nil
}
