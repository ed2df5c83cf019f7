// Package feedback produces the structured review feedback: a remote
// generator backed by the LLM client, an unconfigured stand-in, and a
// deterministic local fallback.
package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/resume-reviewer/internal/llm"
	"github.com/jonathan/resume-reviewer/internal/logging"
	"github.com/sirupsen/logrus"
)

// Sentinel prefixes marking generator output that is not real feedback.
const (
	SentinelUnconfigured = "[LLM not configured]"
	SentinelError        = "[ERROR]"
)

// Generator defaults.
const (
	DefaultTimeout    = 45 * time.Second
	DefaultMaxRetries = 1
	MaxRetriesLimit   = 3
)

// Request is one feedback generation call.
type Request struct {
	System string
	Prompt string
}

// Generator turns a feedback request into text, normally JSON.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// IsSentinel reports whether s is a sentinel rather than generated feedback.
func IsSentinel(s string) bool {
	return strings.HasPrefix(s, SentinelUnconfigured) || strings.HasPrefix(s, SentinelError)
}

// Unconfigured is the generator used when no credentials are available.
// It echoes the start of the prompt behind the unconfigured sentinel.
type Unconfigured struct{}

// Generate implements Generator.
func (Unconfigured) Generate(_ context.Context, req Request) (string, error) {
	return SentinelUnconfigured + "\n" + Excerpt(req.Prompt, JDExcerptLimit), nil
}

// LLMOptions configures an LLMGenerator.
type LLMOptions struct {
	Tier       llm.ModelTier
	Timeout    time.Duration // per attempt
	MaxRetries int
	Retry      RetryConfig // backoff; MaxRetries is taken from the field above
	Logger     logrus.FieldLogger
}

// LLMGenerator generates feedback through an llm.Client with a per-attempt
// timeout and a small bounded number of retries.
type LLMGenerator struct {
	client  llm.Client
	tier    llm.ModelTier
	timeout time.Duration
	retry   RetryConfig
	log     logrus.FieldLogger
}

// NewLLMGenerator creates a generator over client.
func NewLLMGenerator(client llm.Client, opts LLMOptions) *LLMGenerator {
	if opts.Tier == "" {
		opts.Tier = llm.TierStandard
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	opts.MaxRetries = min(opts.MaxRetries, MaxRetriesLimit)
	retry := opts.Retry
	if retry.InitialWait <= 0 {
		retry = DefaultRetryConfig
	}
	retry.MaxRetries = opts.MaxRetries

	return &LLMGenerator{
		client:  client,
		tier:    opts.Tier,
		timeout: opts.Timeout,
		retry:   retry,
		log:     logging.OrDiscard(opts.Logger),
	}
}

// Generate implements Generator. The output must be a JSON document;
// anything else is reported as a malformed response.
func (g *LLMGenerator) Generate(ctx context.Context, req Request) (string, error) {
	return retryDo(ctx, g.retry, g.onRetry, func(ctx context.Context) (string, error) {
		actx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		out, err := g.client.GenerateJSON(actx, req.System, req.Prompt, g.tier)
		if err != nil {
			return "", err
		}
		out = strings.TrimSpace(out)
		if out == "" {
			return "", &MalformedResponseError{Message: "empty response"}
		}
		if !json.Valid([]byte(out)) {
			return "", &MalformedResponseError{Message: "response is not valid JSON"}
		}
		if missing := missingKeys(out); len(missing) > 0 {
			g.log.WithField("missing_keys", missing).Warn("feedback response lacks required keys")
		}
		return out, nil
	})
}

var requiredKeys = llm.RequiredFieldNames(OutputFields)

// missingKeys lists the required output keys absent from a JSON object.
// Non-object documents report every key.
func missingKeys(doc string) []string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(doc), &obj); err != nil {
		return requiredKeys
	}
	var missing []string
	for _, k := range requiredKeys {
		if _, ok := obj[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

func (g *LLMGenerator) onRetry(attempt int, wait time.Duration, err error) {
	g.log.WithFields(logrus.Fields{
		"attempt": attempt,
		"wait_ms": wait.Milliseconds(),
		"model":   g.client.GetModel(g.tier),
	}).WithError(err).Warn("feedback generation failed, retrying")
}

// MalformedResponseError is returned when the generator answers with
// something other than a JSON document.
type MalformedResponseError struct {
	Message string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed feedback response: %s", e.Message)
}
