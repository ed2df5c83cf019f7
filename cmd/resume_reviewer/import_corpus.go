package main

import (
	"fmt"

	"github.com/jonathan/resume-reviewer/internal/corpus"
	"github.com/jonathan/resume-reviewer/internal/db"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var importCorpusCmd = &cobra.Command{
	Use:   "import-corpus",
	Short: "Load a role corpus CSV into PostgreSQL",
	Long:  "Replace the contents of the role_corpus table with the rows of a CSV file, creating the table if needed.",
	RunE:  runImportCorpus,
}

var (
	importCorpusPath  string
	importDatabaseURL string
)

func init() {
	importCorpusCmd.Flags().StringVar(&importCorpusPath, "corpus", "", "Path to the role corpus CSV (required)")
	importCorpusCmd.Flags().StringVar(&importDatabaseURL, "database-url", "", "Database URL (overrides DATABASE_URL)")
	_ = importCorpusCmd.MarkFlagRequired("corpus")

	rootCmd.AddCommand(importCorpusCmd)
}

func runImportCorpus(cmd *cobra.Command, _ []string) error {
	databaseURL := importDatabaseURL
	if databaseURL == "" {
		databaseURL = cfg.DatabaseURL
	}
	if databaseURL == "" {
		return fmt.Errorf("database URL is required (set DATABASE_URL or use --database-url)")
	}

	rows, err := corpus.ReadFile(importCorpusPath)
	if err != nil {
		return err
	}

	ctx := cmdContext(cmd)
	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.EnsureSchema(ctx); err != nil {
		return err
	}
	n, err := database.ReplaceRoleCorpus(ctx, rows)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{"rows": n, "corpus": importCorpusPath}).Info("imported role corpus")
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rows into role_corpus\n", n)
	return nil
}
