package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jonathan/resume-reviewer/internal/observability"
	"github.com/jonathan/resume-reviewer/internal/parsing"
	"github.com/jonathan/resume-reviewer/internal/review"
	"github.com/jonathan/resume-reviewer/internal/schemas"
	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review a resume and print the result as JSON",
	Long: "Score a resume, predict its role, retrieve role guidance and generate improvement feedback. " +
		"The resume may be a .pdf, .docx, .html, .txt or .md file.",
	RunE: runReview,
}

var (
	reviewResumeFile string
	reviewJDFile     string
	reviewRole       string
	reviewSkills     string
	reviewOutputFile string
)

func init() {
	reviewCmd.Flags().StringVarP(&reviewResumeFile, "resume", "r", "", "Path to the resume file (required)")
	reviewCmd.Flags().StringVar(&reviewJDFile, "jd", "", "Path to a job description file")
	reviewCmd.Flags().StringVar(&reviewRole, "role", "", "Target role (defaults to the predicted role)")
	reviewCmd.Flags().StringVar(&reviewSkills, "skills", "", "Comma-separated required skills, used when the role is not in the knowledge base")
	reviewCmd.Flags().StringVarP(&reviewOutputFile, "out", "o", "", "Write the result to this file instead of stdout")
	_ = reviewCmd.MarkFlagRequired("resume")

	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, _ []string) error {
	resume, err := readText(reviewResumeFile)
	if err != nil {
		return err
	}
	var jd string
	if reviewJDFile != "" {
		if jd, err = readText(reviewJDFile); err != nil {
			return err
		}
	}

	ctx := cmdContext(cmd)
	client, err := newLLMClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeClient(client)

	kb := openKnowledgeBase(cfg, client, log)
	reviewer := review.New(kb.Index, newGenerator(cfg, client, log), log, review.Options{DefaultRole: cfg.DefaultRole})

	res := reviewer.Review(ctx, review.Request{
		ResumeText:     resume,
		JDText:         jd,
		TargetRole:     reviewRole,
		RequiredSkills: parsing.SplitCSVList(reviewSkills),
	})

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if err := schemas.Validate(schemas.ReviewResult, data); err != nil {
		var validationErr *schemas.ValidationError
		if errors.As(err, &validationErr) {
			return fmt.Errorf("review result does not validate against schema: %w", err)
		}
		log.WithError(err).Warn("could not validate review result against schema")
	}

	if verbose {
		observability.NewPrinter(os.Stderr).PrintReview(res)
	}

	data = append(data, '\n')
	if reviewOutputFile == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(reviewOutputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Review written to %s\n", reviewOutputFile)
	return nil
}
