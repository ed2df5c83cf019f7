// Package config provides configuration loading and validation for the CLI
// and the server.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/resume-reviewer/internal/llm"
)

// Environment variables read by ApplyEnv.
const (
	EnvArtifactsDir       = "RR_ARTIFACTS_DIR"
	EnvCorpusPath         = "RR_CORPUS_PATH"
	EnvDatabaseURL        = "DATABASE_URL"
	EnvEmbedder           = "RR_EMBEDDER"
	EnvEmbeddingDim       = "RR_EMBEDDING_DIM"
	EnvGeminiAPIKey       = "GEMINI_API_KEY"
	EnvFeedbackModel      = "RR_FEEDBACK_MODEL"
	EnvFeedbackTimeout    = "RR_FEEDBACK_TIMEOUT"
	EnvFeedbackMaxRetries = "RR_FEEDBACK_MAX_RETRIES"
	EnvDefaultRole        = "RR_DEFAULT_ROLE"
	EnvPort               = "PORT"
	EnvLogLevel           = "LOG_LEVEL"
	EnvQueryK             = "RR_QUERY_K"
)

// Config is the resolved configuration. Values come from Default, then an
// optional JSON file, then the environment, then CLI flags.
type Config struct {
	ArtifactsDir       string   `json:"artifacts_dir,omitempty" validate:"required"`
	CorpusPath         string   `json:"corpus_path,omitempty"`
	DatabaseURL        string   `json:"database_url,omitempty"`
	Embedder           string   `json:"embedder,omitempty" validate:"oneof=hashing gemini"`
	EmbeddingDim       int      `json:"embedding_dim,omitempty" validate:"gte=8,lte=8192"`
	GeminiAPIKey       string   `json:"gemini_api_key,omitempty"`
	FeedbackModel      string   `json:"feedback_model,omitempty"`
	FeedbackTimeout    Duration `json:"feedback_timeout,omitempty" validate:"gt=0"`
	FeedbackMaxRetries int      `json:"feedback_max_retries" validate:"gte=0,lte=3"`
	DefaultRole        string   `json:"default_role,omitempty" validate:"required"`
	Port               int      `json:"port,omitempty" validate:"gte=1,lte=65535"`
	LogLevel           string   `json:"log_level,omitempty" validate:"oneof=debug info warn warning error"`
	QueryK             int      `json:"query_k,omitempty" validate:"gte=1,lte=20"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ArtifactsDir:       "artifacts",
		Embedder:           "hashing",
		EmbeddingDim:       512,
		FeedbackTimeout:    Duration(45 * time.Second),
		FeedbackMaxRetries: 1,
		DefaultRole:        "General",
		Port:               8080,
		LogLevel:           "info",
		QueryK:             5,
	}
}

// Load resolves the configuration from defaults, the JSON file at path (if
// any) and the process environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := readFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig loads a JSON config file on top of the defaults without
// consulting the environment.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}
	cfg := Default()
	if err := readFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readFile(path string, cfg *Config) error {
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return nil
}

// ApplyEnv overlays environment values found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config error: %s must be an integer: %w", key, err)
		}
		*dst = n
		return nil
	}

	str(EnvArtifactsDir, &c.ArtifactsDir)
	str(EnvCorpusPath, &c.CorpusPath)
	str(EnvDatabaseURL, &c.DatabaseURL)
	str(EnvEmbedder, &c.Embedder)
	str(EnvGeminiAPIKey, &c.GeminiAPIKey)
	str(EnvFeedbackModel, &c.FeedbackModel)
	str(EnvDefaultRole, &c.DefaultRole)
	str(EnvLogLevel, &c.LogLevel)
	c.LogLevel = strings.ToLower(c.LogLevel)

	if v, ok := lookup(EnvFeedbackTimeout); ok && strings.TrimSpace(v) != "" {
		d, err := parseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config error: %s: %w", EnvFeedbackTimeout, err)
		}
		c.FeedbackTimeout = Duration(d)
	}

	for key, dst := range map[string]*int{
		EnvEmbeddingDim:       &c.EmbeddingDim,
		EnvFeedbackMaxRetries: &c.FeedbackMaxRetries,
		EnvPort:               &c.Port,
		EnvQueryK:             &c.QueryK,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config error: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q (got %v)", fe.Field(), fe.ActualTag()+paramSuffix(fe.Param()), fe.Value()))
	}
	return &ValidationError{Fields: msgs, Cause: err}
}

func paramSuffix(p string) string {
	if p == "" {
		return ""
	}
	return "=" + p
}

// HasGeminiKey reports whether a remote generator can be configured.
func (c *Config) HasGeminiKey() bool {
	return strings.TrimSpace(c.GeminiAPIKey) != ""
}

// LLMConfig returns the LLM client configuration.
func (c *Config) LLMConfig() *llm.Config {
	cfg := llm.DefaultGeminiConfig()
	if c.FeedbackModel != "" {
		cfg = cfg.WithModel(llm.TierStandard, c.FeedbackModel)
	}
	return cfg
}

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields []string
	Cause  error
}

func (e *ValidationError) Error() string {
	return "config error: " + strings.Join(e.Fields, "; ")
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// Duration is a time.Duration read from JSON as "45s" or a number of seconds.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := parseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("duration must be a string like \"45s\" or seconds: %w", err)
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

// parseDuration accepts Go duration strings and bare seconds.
func parseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}
