package main

import (
	"fmt"

	"github.com/jonathan/resume-reviewer/internal/logging"
	"github.com/jonathan/resume-reviewer/internal/review"
	"github.com/jonathan/resume-reviewer/internal/server"
	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: "Start an HTTP server exposing review, scoring, role prediction and role query endpoints. " +
		"The server starts in degraded mode when the knowledge base is missing.",
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if servePort > 0 {
		cfg.Port = servePort
	}
	logger := logging.New(cfg.LogLevel, logging.FormatJSON)

	ctx := cmdContext(cmd)
	client, err := newLLMClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeClient(client)

	kb := openKnowledgeBase(cfg, client, logger)
	reviewer := review.New(kb.Index, newGenerator(cfg, client, logger), logger, review.Options{DefaultRole: cfg.DefaultRole})

	srv, err := server.New(server.Config{
		Port:          cfg.Port,
		KnowledgeBase: kb,
		Reviewer:      reviewer,
		Logger:        logger,
		QueryK:        cfg.QueryK,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start(ctx)
}
