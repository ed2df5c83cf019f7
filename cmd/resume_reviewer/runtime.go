package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jonathan/resume-reviewer/internal/config"
	"github.com/jonathan/resume-reviewer/internal/feedback"
	"github.com/jonathan/resume-reviewer/internal/ingestion"
	"github.com/jonathan/resume-reviewer/internal/llm"
	"github.com/jonathan/resume-reviewer/internal/observability"
	"github.com/jonathan/resume-reviewer/internal/roleindex"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// newLLMClient returns nil when no API key is configured.
func newLLMClient(ctx context.Context, c *config.Config) (llm.Client, error) {
	if !c.HasGeminiKey() {
		return nil, nil
	}
	client, err := llm.NewClient(ctx, c.LLMConfig(), c.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return client, nil
}

func closeClient(client llm.Client) {
	if client != nil {
		_ = client.Close()
	}
}

// loadEmbedder returns the embedder to open an existing index with. nil lets
// the index pick its hashing embedder from the stored name.
func loadEmbedder(c *config.Config, client llm.Client) roleindex.Embedder {
	if c.Embedder == roleindex.EmbedderGemini && client != nil {
		return roleindex.NewGeminiEmbedder(client)
	}
	return nil
}

// openKnowledgeBase opens the artifacts and logs the outcome. Failures are
// reported through the result, never returned.
func openKnowledgeBase(c *config.Config, client llm.Client, logger logrus.FieldLogger) roleindex.LoadResult {
	kb := roleindex.Open(c.ArtifactsDir, loadEmbedder(c, client))
	entry := logger.WithFields(logrus.Fields{
		"artifacts_dir": c.ArtifactsDir,
		"status":        kb.Status,
	})
	if kb.Available() {
		entry.WithFields(logrus.Fields{
			"build_id": kb.Index.BuildID(),
			"roles":    kb.Index.Len(),
		}).Info("knowledge base loaded")
	} else {
		entry.WithError(kb.Err).Warn("knowledge base unavailable; running degraded")
	}
	if verbose {
		observability.NewPrinter(os.Stderr).PrintKnowledgeBase(kb.Message())
	}
	return kb
}

// requireKnowledgeBase opens the artifacts and fails when they are unusable.
func requireKnowledgeBase(c *config.Config, client llm.Client, logger logrus.FieldLogger) (*roleindex.Index, error) {
	kb := openKnowledgeBase(c, client, logger)
	if !kb.Available() {
		return nil, fmt.Errorf("%s (run build-index first)", kb.Message())
	}
	return kb.Index, nil
}

// newGenerator selects the remote generator when a client is available and
// the unconfigured sentinel generator otherwise.
func newGenerator(c *config.Config, client llm.Client, logger logrus.FieldLogger) feedback.Generator {
	if client == nil {
		logger.Info("GEMINI_API_KEY not set; feedback uses the local fallback")
		return feedback.Unconfigured{}
	}
	return feedback.NewLLMGenerator(client, feedback.LLMOptions{
		Timeout:    c.FeedbackTimeout.Std(),
		MaxRetries: c.FeedbackMaxRetries,
		Logger:     logger,
	})
}

// readDocument extracts plain text from a .pdf, .docx, .html, .txt or .md file.
func readDocument(path string) (*ingestion.Document, error) {
	doc, err := ingestion.ExtractFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return doc, nil
}

func readText(path string) (string, error) {
	doc, err := readDocument(path)
	if err != nil {
		return "", err
	}
	return doc.Text, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
