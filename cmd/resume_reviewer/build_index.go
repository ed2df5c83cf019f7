package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/resume-reviewer/internal/corpus"
	"github.com/jonathan/resume-reviewer/internal/db"
	"github.com/jonathan/resume-reviewer/internal/roleindex"
	"github.com/jonathan/resume-reviewer/internal/types"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var buildIndexCmd = &cobra.Command{
	Use:   "build-index",
	Short: "Build the role knowledge base from a corpus",
	Long: "Read role corpus rows from a CSV file or PostgreSQL, embed and index them, train the role " +
		"classifier, and atomically publish the artifacts.",
	RunE: runBuildIndex,
}

var (
	buildCorpusPath   string
	buildDatabaseURL  string
	buildArtifactsDir string
	buildEmbedder     string
	buildEmbeddingDim int
)

func init() {
	buildIndexCmd.Flags().StringVar(&buildCorpusPath, "corpus", "", "Path to the role corpus CSV (overrides RR_CORPUS_PATH)")
	buildIndexCmd.Flags().StringVar(&buildDatabaseURL, "database-url", "", "Read the corpus from PostgreSQL instead of CSV")
	buildIndexCmd.Flags().StringVar(&buildArtifactsDir, "artifacts", "", "Artifacts directory (overrides RR_ARTIFACTS_DIR)")
	buildIndexCmd.Flags().StringVar(&buildEmbedder, "embedder", "", "Embedder: hashing or gemini (overrides RR_EMBEDDER)")
	buildIndexCmd.Flags().IntVar(&buildEmbeddingDim, "embedding-dim", 0, "Hashing embedder dimension (overrides RR_EMBEDDING_DIM)")

	buildIndexCmd.MarkFlagsMutuallyExclusive("corpus", "database-url")
	rootCmd.AddCommand(buildIndexCmd)
}

func runBuildIndex(cmd *cobra.Command, _ []string) error {
	if buildCorpusPath != "" {
		cfg.CorpusPath = buildCorpusPath
		cfg.DatabaseURL = ""
	}
	if buildDatabaseURL != "" {
		cfg.DatabaseURL = buildDatabaseURL
		cfg.CorpusPath = ""
	}
	if buildArtifactsDir != "" {
		cfg.ArtifactsDir = buildArtifactsDir
	}
	if buildEmbedder != "" {
		cfg.Embedder = buildEmbedder
	}
	if buildEmbeddingDim > 0 {
		cfg.EmbeddingDim = buildEmbeddingDim
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmdContext(cmd)

	rows, source, err := loadCorpusRows(ctx)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"rows": len(rows), "source": source}).Info("loaded role corpus")

	client, err := newLLMClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeClient(client)

	embedder, err := roleindex.NewEmbedder(cfg.Embedder, cfg.EmbeddingDim, client)
	if err != nil {
		return fmt.Errorf("failed to configure embedder: %w", err)
	}

	start := time.Now()
	ix, err := roleindex.Build(ctx, rows, roleindex.BuildOptions{Embedder: embedder, Logger: log})
	if err != nil {
		return err
	}
	if err := roleindex.Save(ix, cfg.ArtifactsDir); err != nil {
		return fmt.Errorf("failed to save artifacts: %w", err)
	}

	log.WithFields(logrus.Fields{
		"build_id":      ix.BuildID(),
		"roles":         ix.Len(),
		"embedder":      ix.EmbedderName(),
		"artifacts_dir": cfg.ArtifactsDir,
		"took_ms":       time.Since(start).Milliseconds(),
	}).Info("knowledge base published")

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Built knowledge base %s: %d roles (%s)\n", ix.BuildID(), ix.Len(), ix.EmbedderName())
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Artifacts: %s\n", cfg.ArtifactsDir)
	return nil
}

func loadCorpusRows(ctx context.Context) ([]types.CorpusRow, string, error) {
	switch {
	case cfg.DatabaseURL != "":
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, "", err
		}
		defer database.Close()
		rows, err := database.ListRoleCorpusRows(ctx)
		if err != nil {
			return nil, "", err
		}
		return rows, "postgres", nil
	case cfg.CorpusPath != "":
		rows, err := corpus.ReadFile(cfg.CorpusPath)
		if err != nil {
			return nil, "", err
		}
		return rows, cfg.CorpusPath, nil
	default:
		return nil, "", fmt.Errorf("a corpus is required (use --corpus, --database-url, RR_CORPUS_PATH or DATABASE_URL)")
	}
}
