// Package ats estimates how well a resume would fare in an applicant tracking
// system, using structural and lexical signals only.
package ats

import (
	"regexp"
	"strings"

	"github.com/jonathan/resume-reviewer/internal/types"
)

// headerScanLines is how many non-empty lines are checked for explicit headers.
const headerScanLines = 60

// skillsTokenThreshold is the distinct-token count above which a resume is
// assumed to list skills even without a header.
const skillsTokenThreshold = 8

// sectionHints maps each section to the phrases that introduce it.
var sectionHints = map[string][]string{
	types.SectionSummary:        {"summary", "profile", "objective", "about"},
	types.SectionExperience:     {"experience", "work", "employment", "professional", "internship"},
	types.SectionProjects:       {"projects", "project work", "academic projects", "personal projects"},
	types.SectionSkills:         {"skills", "technical skills", "tools", "technologies", "stack"},
	types.SectionEducation:      {"education", "qualifications", "academics", "b.tech", "bachelor", "master", "university", "college"},
	types.SectionCertifications: {"certifications", "courses", "licenses"},
	types.SectionAchievements:   {"achievements", "awards", "honors"},
}

var (
	hintPatterns = compileHintPatterns()

	experienceFallbackRe = regexp.MustCompile(`\b(develop|built|worked|engineer|implemented|\d+\s+years?)\b`)
	educationFallbackRe  = regexp.MustCompile(`\b(bachelor|master|degree|gpa|percentage)\b`)
	skillTokenRe         = regexp.MustCompile(`[A-Za-z0-9+#./-]{2,}`)
)

// compileHintPatterns builds one whole-word matcher per hint phrase.
func compileHintPatterns() map[string][]*regexp.Regexp {
	out := make(map[string][]*regexp.Regexp, len(sectionHints))
	for section, hints := range sectionHints {
		for _, h := range hints {
			out[section] = append(out[section], regexp.MustCompile(`\b`+regexp.QuoteMeta(h)+`\b`))
		}
	}
	return out
}

// DetectSections reports which of the standard resume sections are present.
// Each section is checked, in order, by an explicit header near the top, by
// any hint phrase anywhere, and finally by a section-specific heuristic.
// The returned map always holds all seven sections.
func DetectSections(text string) map[string]bool {
	presence := types.EmptySections()
	if strings.TrimSpace(text) == "" {
		return presence
	}

	lower := strings.ToLower(text)
	headers := headerLines(text, headerScanLines)

	for _, section := range types.SectionNames {
		switch {
		case hasHeader(section, headers):
			presence[section] = true
		case hasHint(section, lower):
			presence[section] = true
		default:
			presence[section] = heuristicMatch(section, text, lower)
		}
	}
	return presence
}

// headerLines returns up to limit trimmed non-empty lines, lowercased and
// stripped of a trailing colon.
func headerLines(text string, limit int) []string {
	lines := make([]string, 0, limit)
	for _, ln := range strings.Split(text, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			continue
		}
		lines = append(lines, strings.TrimRight(strings.ToLower(ln), ":"))
		if len(lines) == limit {
			break
		}
	}
	return lines
}

func hasHeader(section string, headers []string) bool {
	for _, h := range headers {
		if h == section {
			return true
		}
		for _, hint := range sectionHints[section] {
			if h == hint {
				return true
			}
		}
	}
	return false
}

func hasHint(section, lower string) bool {
	for _, re := range hintPatterns[section] {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

func heuristicMatch(section, raw, lower string) bool {
	switch section {
	case types.SectionExperience:
		return experienceFallbackRe.MatchString(lower)
	case types.SectionEducation:
		return educationFallbackRe.MatchString(lower)
	case types.SectionSkills:
		seen := make(map[string]struct{})
		for _, tok := range skillTokenRe.FindAllString(raw, -1) {
			seen[tok] = struct{}{}
			if len(seen) > skillsTokenThreshold {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// CountDetected returns how many sections are marked present.
func CountDetected(sections map[string]bool) int {
	n := 0
	for _, ok := range sections {
		if ok {
			n++
		}
	}
	return n
}
