// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/resume-reviewer/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(line, boxWidth-4))
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad truncates or right-pads s to exactly width runes.
func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n > width {
		r := []rune(s)
		return string(r[:width-3]) + "..."
	}
	return s + strings.Repeat(" ", width-n)
}

func check(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

// PrintKnowledgeBase outputs the knowledge base load outcome.
func (p *Printer) PrintKnowledgeBase(message string) {
	p.printBox("KNOWLEDGE BASE", message)
}

// PrintBreakdown outputs the ATS score and every signal behind it.
func (p *Printer) PrintBreakdown(score float64, b types.ATSBreakdown) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Score:              %.1f / 100\n", score))
	if b.Error != "" {
		sb.WriteString(fmt.Sprintf("Error:              %s\n", b.Error))
	}
	sb.WriteString(fmt.Sprintf("Section coverage:   %.3f\n", b.SectionCoverage))
	sb.WriteString(fmt.Sprintf("Keyword match:      %.3f\n", b.KeywordMatchRate))
	sb.WriteString(fmt.Sprintf("Quantification:     %.3f\n", b.QuantificationSignal))
	sb.WriteString(fmt.Sprintf("Readability:        %.1f\n", b.Readability))
	sb.WriteString(fmt.Sprintf("Formatting penalty: %.3f\n", b.FormattingPenalty))
	sb.WriteString("\nSections:\n")
	for _, name := range types.SectionNames {
		sb.WriteString(fmt.Sprintf("  %s %s\n", check(b.SectionsDetected[name]), name))
	}
	p.printBox("ATS BREAKDOWN", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintPrediction outputs a predicted role and its confidence.
func (p *Printer) PrintPrediction(role string, confidence float64) {
	p.printBox("PREDICTED ROLE", fmt.Sprintf("%s (%.1f%%)", role, confidence*100))
}

// PrintMatches outputs the nearest roles with their similarity and skills.
func (p *Printer) PrintMatches(matches []types.RoleMatch) {
	if len(matches) == 0 {
		return
	}

	var sb strings.Builder
	count := min(len(matches), maxItemsToShow)
	for i := 0; i < count; i++ {
		m := matches[i]
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, m.Record.JobPosition))
		sb.WriteString(fmt.Sprintf("    Similarity: %.3f\n", m.Score))
		if len(m.Record.Skills) > 0 {
			sb.WriteString(fmt.Sprintf("    Skills: %s\n", strings.Join(m.Record.Skills, ", ")))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}
	if len(matches) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more roles", len(matches)-maxItemsToShow))
	}
	p.printBox("NEAREST ROLES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintReview outputs a summary of a review result.
func (p *Printer) PrintReview(res *types.ReviewResult) {
	if res == nil {
		return
	}

	predicted := "unavailable"
	if res.PredictedRole != nil {
		predicted = fmt.Sprintf("%s (%.1f%%)", *res.PredictedRole, res.PredictedConfidence*100)
	}
	feedback := "local fallback"
	if res.LLMUsed {
		feedback = "generated"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Review:      %s\n", res.ReviewID))
	sb.WriteString(fmt.Sprintf("Predicted:   %s\n", predicted))
	sb.WriteString(fmt.Sprintf("Target role: %s\n", res.TargetRole))
	sb.WriteString(fmt.Sprintf("ATS score:   %.1f\n", res.ATSScore))
	sb.WriteString(fmt.Sprintf("Feedback:    %s\n", feedback))
	if !res.KnowledgeBaseAvailable {
		sb.WriteString("Knowledge base unavailable\n")
	}
	if len(res.RelatedRoles) > 0 {
		sb.WriteString("\nRelated roles:\n")
		for _, r := range res.RelatedRoles {
			sb.WriteString(fmt.Sprintf("  • %s (%.3f)\n", r.Role, r.Similarity))
		}
	}
	p.printBox("RESUME REVIEW", strings.TrimSuffix(sb.String(), "\n"))
	p.PrintBreakdown(res.ATSScore, res.ATSBreakdown)
}
