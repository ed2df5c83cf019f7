package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonathan/resume-reviewer/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 45*time.Second, cfg.FeedbackTimeout.Std())
	assert.Equal(t, "General", cfg.DefaultRole)
	assert.False(t, cfg.HasGeminiKey())
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"artifacts_dir": "/var/lib/rr",
		"embedder": "gemini",
		"feedback_timeout": "30s",
		"feedback_max_retries": 0,
		"query_k": 7
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/rr", cfg.ArtifactsDir)
	assert.Equal(t, "gemini", cfg.Embedder)
	assert.Equal(t, 30*time.Second, cfg.FeedbackTimeout.Std())
	assert.Equal(t, 0, cfg.FeedbackMaxRetries)
	assert.Equal(t, 7, cfg.QueryK)
	assert.Equal(t, 8080, cfg.Port, "unset keys keep defaults")
}

func TestLoadConfig_NumericTimeout(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{"feedback_timeout": 2.5}`), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, cfg.FeedbackTimeout.Std())
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{ invalid json }`), 0644))
	_, err = LoadConfig(tmpFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		EnvArtifactsDir:       " /data ",
		EnvGeminiAPIKey:       "key",
		EnvFeedbackTimeout:    "10s",
		EnvFeedbackMaxRetries: "3",
		EnvPort:               "9090",
		EnvLogLevel:           "DEBUG",
		EnvQueryK:             "",
	}))
	require.NoError(t, err)

	assert.Equal(t, "/data", cfg.ArtifactsDir)
	assert.True(t, cfg.HasGeminiKey())
	assert.Equal(t, 10*time.Second, cfg.FeedbackTimeout.Std())
	assert.Equal(t, 3, cfg.FeedbackMaxRetries)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5, cfg.QueryK, "empty values are ignored")
	require.NoError(t, cfg.Validate())
}

func TestApplyEnv_BadValues(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{EnvPort: "eighty"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvPort)

	cfg = Default()
	err = cfg.ApplyEnv(env(map[string]string{EnvFeedbackTimeout: "soon"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvFeedbackTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"embedder", func(c *Config) { c.Embedder = "word2vec" }, "Embedder"},
		{"retries", func(c *Config) { c.FeedbackMaxRetries = 4 }, "FeedbackMaxRetries"},
		{"query k", func(c *Config) { c.QueryK = 21 }, "QueryK"},
		{"port", func(c *Config) { c.Port = 0 }, "Port"},
		{"log level", func(c *Config) { c.LogLevel = "verbose" }, "LogLevel"},
		{"artifacts", func(c *Config) { c.ArtifactsDir = "" }, "ArtifactsDir"},
		{"timeout", func(c *Config) { c.FeedbackTimeout = 0 }, "FeedbackTimeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{"default_role": "From File", "port": 7000}`), 0644))
	t.Setenv(EnvPort, "7001")
	for _, key := range []string{EnvDefaultRole, EnvLogLevel, EnvEmbedder, EnvEmbeddingDim, EnvQueryK, EnvFeedbackMaxRetries, EnvFeedbackTimeout} {
		t.Setenv(key, "")
	}

	cfg, err := Load(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, "From File", cfg.DefaultRole)
	assert.Equal(t, 7001, cfg.Port)
}

func TestLLMConfig(t *testing.T) {
	cfg := Default()
	assert.Equal(t, llm.DefaultGeminiConfig().GetModel(llm.TierStandard), cfg.LLMConfig().GetModel(llm.TierStandard))

	cfg.FeedbackModel = "gemini-custom"
	assert.Equal(t, "gemini-custom", cfg.LLMConfig().GetModel(llm.TierStandard))
}
