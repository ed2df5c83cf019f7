package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List the roles in the knowledge base",
	RunE:  runRoles,
}

func init() {
	rootCmd.AddCommand(rolesCmd)
}

func runRoles(cmd *cobra.Command, _ []string) error {
	client, err := newLLMClient(cmdContext(cmd), cfg)
	if err != nil {
		return err
	}
	defer closeClient(client)

	ix, err := requireKnowledgeBase(cfg, client, log)
	if err != nil {
		return err
	}
	for _, role := range ix.Roles() {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), role)
	}
	return nil
}
