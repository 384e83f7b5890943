package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "")
	t.Setenv("DATABASE_URL", "")
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
data_dir: "docs"

llm:
  base_url: "http://localhost:11434"
  model: "llama3"
  max_tokens: 1000
  temperature: 0.5

embedder:
  model: "nomic-embed-text"

index:
  backend: "pgvector"
  url: "postgres://localhost:5432/test"
  table_name: "test_chunks"
  vector_dim: 768

scraper:
  max_depth: 5
  rate_limit: 1.5
  ignore_patterns:
    - "/test/"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "docs", config.DataDir)
	assert.Equal(t, "ingested_files.json", config.TrackerFile)
	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, "llama3", config.LLM.Model)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, "nomic-embed-text", config.Embedder.Model)
	assert.Equal(t, "http://localhost:11434", config.Embedder.BaseURL)
	assert.Equal(t, "pgvector", config.Index.Backend)
	assert.Equal(t, "postgres://localhost:5432/test", config.Index.URL)
	assert.Equal(t, 768, config.Index.VectorDim)
	require.NotNil(t, config.Scraper.MaxDepth)
	assert.Equal(t, 5, *config.Scraper.MaxDepth)
	assert.Equal(t, []string{".html", ".htm"}, config.Scraper.AllowedExtensions)
	assert.Empty(t, config.Validate())
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("llm: [unclosed"), 0644))
	_, err = LoadConfig(bad)
	assert.ErrorContains(t, err, "error parsing config file")
}

func TestDefaultConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OLLAMA_BASE_URL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "data", config.DataDir)
	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, "all-minilm", config.Embedder.Model)
	assert.Equal(t, "local", config.Index.Backend)
	assert.Equal(t, "index", config.Index.Dir)
	assert.Equal(t, ":8080", config.Server.Addr)
	require.NotNil(t, config.Scraper.MaxDepth)
	assert.Equal(t, 2, *config.Scraper.MaxDepth)
	assert.Empty(t, config.Validate())
}

func TestLoadConfigKeepsZeroDepth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scraper:\n  max_depth: 0\n"), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, config.Scraper.MaxDepth)
	assert.Equal(t, 0, *config.Scraper.MaxDepth)
	assert.Empty(t, config.Validate())
}

func TestConfigValidation(t *testing.T) {
	valid := func() Config {
		c := Config{}
		applyDefaults(&c)
		return c
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		fields []string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name: "bad llm",
			mutate: func(c *Config) {
				c.LLM.BaseURL = "invalid-url"
				c.LLM.MaxTokens = 10000
				c.LLM.Temperature = 3.0
			},
			fields: []string{"llm.base_url", "llm.max_tokens", "llm.temperature"},
		},
		{
			name: "pgvector without url",
			mutate: func(c *Config) {
				c.Index.Backend = "pgvector"
			},
			fields: []string{"index.url"},
		},
		{
			name: "unknown backend",
			mutate: func(c *Config) {
				c.Index.Backend = "faiss"
				c.Index.VectorDim = -1
			},
			fields: []string{"index.backend", "index.vector_dim"},
		},
		{
			name: "bad scraper",
			mutate: func(c *Config) {
				depth := -1
				c.Scraper.MaxDepth = &depth
				c.Scraper.RateLimit = -1
				c.Scraper.AllowedExtensions = []string{"html"}
			},
			fields: []string{"scraper.max_depth", "scraper.rate_limit", "scraper.allowed_extensions"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			errors := c.Validate()

			var fields []string
			for _, e := range errors {
				fields = append(fields, e.Field)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	t.Setenv("PORT", "9090")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "http://env-ollama:11434", config.LLM.BaseURL)
	assert.Equal(t, "http://env-ollama:11434", config.Embedder.BaseURL)
	assert.Equal(t, "postgres://env-db:5432/test", config.Index.URL)
	assert.Equal(t, ":9090", config.Server.Addr)
}
