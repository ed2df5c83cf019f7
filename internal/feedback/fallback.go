package feedback

import (
	"encoding/json"
	"strings"

	"github.com/jonathan/resume-reviewer/internal/ats"
	"github.com/jonathan/resume-reviewer/internal/prompts"
	"github.com/jonathan/resume-reviewer/internal/rewriting"
	"github.com/jonathan/resume-reviewer/internal/types"
)

// FallbackSource tags payloads built locally.
const FallbackSource = "local_fallback"

const (
	// summarySkills is how many role skills the fallback summary names.
	summarySkills = 5
	// maxBulletRewrites caps the per-bullet rewrite hints.
	maxBulletRewrites = 5
)

// FallbackInput is what the local fallback needs.
type FallbackInput struct {
	Role           string
	ResumeText     string
	Sections       map[string]bool
	RequiredSkills []string
}

// SectionFeedback is the fallback commentary for one section.
type SectionFeedback struct {
	Section  string `json:"section"`
	Detected bool   `json:"detected"`
	Comment  string `json:"comment"`
}

// FallbackPayload is the locally synthesized feedback document.
type FallbackPayload struct {
	FeedbackBySection []SectionFeedback `json:"feedback_by_section"`
	MissingKeywords   []string          `json:"missing_keywords"`
	BulletRewrites    []string          `json:"bullet_rewrites"`
	LanguageFixes     []string          `json:"language_fixes"`
	TailoredSummary   string            `json:"tailored_summary"`
	Source            string            `json:"source"`
}

// BuildFallback assembles the deterministic feedback payload.
func BuildFallback(in FallbackInput) FallbackPayload {
	sections := in.Sections
	if sections == nil {
		sections = ats.DetectSections(in.ResumeText)
	}

	bySection := make([]SectionFeedback, 0, len(types.SectionNames))
	for _, name := range types.SectionNames {
		key := prompts.KeyFallbackSectionMissing
		if sections[name] {
			key = prompts.KeyFallbackSectionPresent
		}
		bySection = append(bySection, SectionFeedback{
			Section:  name,
			Detected: sections[name],
			Comment:  prompts.Format(prompts.MustGet(prompts.ReviewFile, key), map[string]string{"Role": in.Role, "Section": name}),
		})
	}

	missing := ats.MissingKeywords(in.ResumeText, in.RequiredSkills)
	if missing == nil {
		missing = []string{}
	}

	data := map[string]string{"Role": in.Role, "Skills": summarySkillList(in.RequiredSkills)}
	return FallbackPayload{
		FeedbackBySection: bySection,
		MissingKeywords:   missing,
		BulletRewrites:    bulletRewrites(in.ResumeText, data),
		LanguageFixes:     rewriting.LanguageFixes(in.ResumeText),
		TailoredSummary:   prompts.Format(prompts.MustGet(prompts.ReviewFile, prompts.KeyFallbackSummary), data),
		Source:            FallbackSource,
	}
}

// bulletRewrites returns the template bullet followed by hints for the
// resume's weakest bullets.
func bulletRewrites(resume string, data map[string]string) []string {
	out := []string{prompts.Format(prompts.MustGet(prompts.ReviewFile, prompts.KeyFallbackBulletRewrite), data)}
	for _, sg := range rewriting.SuggestRewrites(resume, maxBulletRewrites) {
		out = append(out, sg.String())
	}
	return out
}

// Fallback renders the fallback payload as JSON.
func Fallback(in FallbackInput) string {
	b, err := json.Marshal(BuildFallback(in))
	if err != nil {
		return SentinelError + " " + err.Error()
	}
	return string(b)
}

func summarySkillList(skills []string) string {
	var names []string
	for _, s := range skills {
		if s = strings.TrimSpace(s); s != "" {
			names = append(names, s)
		}
		if len(names) == summarySkills {
			break
		}
	}
	if len(names) == 0 {
		return "the core skills for this role"
	}
	return strings.Join(names, ", ")
}
