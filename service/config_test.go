package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "vecrag.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`store:
  driver: sqlite
  dsn: ~/data/docs.sqlite
  namespace: handbook
embedder:
  provider: simple
  dim: 16
chat:
  model: gpt-4o
  temperature: 0.2
retrieval:
  k: 6
  scoreThreshold: 0.4
log:
  level: debug
`), 0o644))

	cfg, err := LoadConfig(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "data/docs.sqlite"), cfg.Store.DSN)
	assert.Equal(t, "handbook", cfg.Store.Namespace)
	assert.Equal(t, "simple", cfg.Embedder.Provider)
	assert.Equal(t, 16, cfg.Embedder.Dim)
	assert.Equal(t, 64, cfg.Embedder.BatchSize)
	assert.Equal(t, "openai", cfg.Chat.Provider)
	require.NotNil(t, cfg.Chat.Temperature)
	assert.Equal(t, 0.2, *cfg.Chat.Temperature)
	assert.Equal(t, 6, cfg.Retrieval.K)
	require.NotNil(t, cfg.Retrieval.ScoreThreshold)
	assert.Equal(t, 0.4, *cfg.Retrieval.ScoreThreshold)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("VECRAG_STORE_DRIVER", "postgres")
	t.Setenv("VECRAG_STORE_DSN", "postgres://localhost/vecrag?sslmode=disable")
	t.Setenv("VECRAG_STORE_DISTANCE", "euclidean")
	t.Setenv("VECRAG_RETRIEVAL_K", "3")
	t.Setenv("VECRAG_RETRIEVAL_SCORE_THRESHOLD", "0.25")
	t.Setenv("VECRAG_INGEST_INCLUDE", "*.md,*.txt")

	cfg, err := LoadConfig(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/vecrag?sslmode=disable", cfg.Store.DSN)
	assert.Equal(t, "euclidean", cfg.Store.Distance)
	assert.Equal(t, 3, cfg.Retrieval.K)
	require.NotNil(t, cfg.Retrieval.ScoreThreshold)
	assert.Equal(t, 0.25, *cfg.Retrieval.ScoreThreshold)
	assert.Equal(t, []string{"*.md", "*.txt"}, cfg.Ingest.Include)
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		description string
		mutate      func(cfg *Config)
		expectErr   bool
	}{
		{description: "defaults", mutate: func(cfg *Config) {}},
		{description: "bad driver", mutate: func(cfg *Config) { cfg.Store.Driver = "mysql" }, expectErr: true},
		{description: "bad embedder", mutate: func(cfg *Config) { cfg.Embedder.Provider = "vertex" }, expectErr: true},
		{description: "bad chat", mutate: func(cfg *Config) { cfg.Chat.Provider = "claude" }, expectErr: true},
		{description: "bad direction", mutate: func(cfg *Config) { cfg.Retrieval.Direction = "up" }, expectErr: true},
		{description: "zero k", mutate: func(cfg *Config) { cfg.Retrieval.K = 0 }, expectErr: true},
		{description: "similarity", mutate: func(cfg *Config) { cfg.Retrieval.Direction = "similarity" }},
		{description: "vertexai without project", mutate: func(cfg *Config) { cfg.Embedder.Provider = "vertexai" }, expectErr: true},
		{description: "vertexai", mutate: func(cfg *Config) {
			cfg.Embedder.Provider = "vertexai"
			cfg.Embedder.Project = "proj"
		}},
	}
	for _, testCase := range testCases {
		cfg := DefaultConfig()
		testCase.mutate(cfg)
		err := cfg.Validate()
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			continue
		}
		assert.NoError(t, err, testCase.description)
	}
}

func TestExpandUserPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	testCases := []struct {
		description string
		path        string
		expect      string
		expectErr   bool
	}{
		{description: "empty", path: "", expect: ""},
		{description: "absolute", path: "/var/db.sqlite", expect: "/var/db.sqlite"},
		{description: "home", path: "~", expect: home},
		{description: "home relative", path: "~/db.sqlite", expect: filepath.Join(home, "db.sqlite")},
		{description: "file uri", path: "file:~/db.sqlite", expect: "file:" + filepath.ToSlash(filepath.Join(home, "db.sqlite"))},
		{description: "memory", path: ":memory:", expect: ":memory:"},
		{description: "other user", path: "~bob/db.sqlite", expectErr: true},
	}
	for _, testCase := range testCases {
		actual, err := expandUserPath(testCase.path)
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expect, actual, testCase.description)
	}
}

func TestExpandDSNWithSecret_NoSecret(t *testing.T) {
	dsn, err := ExpandDSNWithSecret(context.Background(), "postgres://x", " ")
	require.NoError(t, err)
	assert.Equal(t, "postgres://x", dsn)

	_, err = ExpandDSNWithSecret(context.Background(), "", "secret://ref")
	assert.Error(t, err)
}
