package main

import (
	"fmt"
	"os"

	"github.com/jonathan/resume-reviewer/internal/observability"
	"github.com/spf13/cobra"
)

var queryRolesCmd = &cobra.Command{
	Use:   "query-roles",
	Short: "List the roles most similar to a text",
	RunE:  runQueryRoles,
}

var (
	queryTextFile string
	queryK        int
)

func init() {
	queryRolesCmd.Flags().StringVarP(&queryTextFile, "text", "t", "", "Path to the query file (required)")
	queryRolesCmd.Flags().IntVarP(&queryK, "top-k", "k", 0, "Number of roles to return (defaults to RR_QUERY_K)")
	_ = queryRolesCmd.MarkFlagRequired("text")

	rootCmd.AddCommand(queryRolesCmd)
}

type queryMatch struct {
	Role       string   `json:"role"`
	Similarity float64  `json:"similarity"`
	Skills     []string `json:"skills"`
}

func runQueryRoles(cmd *cobra.Command, _ []string) error {
	k := queryK
	if k == 0 {
		k = cfg.QueryK
	}
	if k < 1 || k > 20 {
		return fmt.Errorf("-k must be between 1 and 20, got %d", k)
	}

	text, err := readText(queryTextFile)
	if err != nil {
		return err
	}

	ctx := cmdContext(cmd)
	client, err := newLLMClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeClient(client)

	ix, err := requireKnowledgeBase(cfg, client, log)
	if err != nil {
		return err
	}
	matches, err := ix.Query(ctx, text, k)
	if err != nil {
		return err
	}
	if verbose {
		observability.NewPrinter(os.Stderr).PrintMatches(matches)
	}

	out := make([]queryMatch, 0, len(matches))
	for _, m := range matches {
		out = append(out, queryMatch{Role: m.Record.JobPosition, Similarity: m.Score, Skills: m.Record.Skills})
	}
	return writeJSON(cmd.OutOrStdout(), map[string][]queryMatch{"matches": out})
}
