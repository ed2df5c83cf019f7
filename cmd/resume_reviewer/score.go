package main

import (
	"os"

	"github.com/jonathan/resume-reviewer/internal/ats"
	"github.com/jonathan/resume-reviewer/internal/observability"
	"github.com/jonathan/resume-reviewer/internal/parsing"
	"github.com/jonathan/resume-reviewer/internal/types"
	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute the ATS score of a resume",
	RunE:  runScore,
}

var (
	scoreTextFile string
	scoreSkills   string
)

func init() {
	scoreCmd.Flags().StringVarP(&scoreTextFile, "text", "t", "", "Path to the resume file (required)")
	scoreCmd.Flags().StringVar(&scoreSkills, "skills", "", "Comma-separated required skills")
	_ = scoreCmd.MarkFlagRequired("text")

	rootCmd.AddCommand(scoreCmd)
}

type scoreOutput struct {
	Score     float64            `json:"score"`
	Breakdown types.ATSBreakdown `json:"breakdown"`
}

func runScore(cmd *cobra.Command, _ []string) error {
	text, err := readText(scoreTextFile)
	if err != nil {
		return err
	}
	score, breakdown := ats.Score(text, parsing.SplitCSVList(scoreSkills))
	if verbose {
		observability.NewPrinter(os.Stderr).PrintBreakdown(score, breakdown)
	}
	return writeJSON(cmd.OutOrStdout(), scoreOutput{Score: score, Breakdown: breakdown})
}
