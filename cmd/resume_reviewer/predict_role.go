package main

import (
	"os"

	"github.com/jonathan/resume-reviewer/internal/observability"
	"github.com/spf13/cobra"
)

var predictRoleCmd = &cobra.Command{
	Use:   "predict-role",
	Short: "Predict the role of a resume with the trained classifier",
	RunE:  runPredictRole,
}

var predictTextFile string

func init() {
	predictRoleCmd.Flags().StringVarP(&predictTextFile, "text", "t", "", "Path to the resume file (required)")
	_ = predictRoleCmd.MarkFlagRequired("text")

	rootCmd.AddCommand(predictRoleCmd)
}

type predictOutput struct {
	Role       string  `json:"role"`
	Confidence float64 `json:"confidence"`
}

func runPredictRole(cmd *cobra.Command, _ []string) error {
	text, err := readText(predictTextFile)
	if err != nil {
		return err
	}
	client, err := newLLMClient(cmdContext(cmd), cfg)
	if err != nil {
		return err
	}
	defer closeClient(client)

	ix, err := requireKnowledgeBase(cfg, client, log)
	if err != nil {
		return err
	}
	role, confidence, err := ix.PredictRole(text)
	if err != nil {
		return err
	}
	if verbose {
		observability.NewPrinter(os.Stderr).PrintPrediction(role, confidence)
	}
	return writeJSON(cmd.OutOrStdout(), predictOutput{Role: role, Confidence: confidence})
}
