package types

// Section names detected in resumes, in display order.
const (
	SectionSummary        = "summary"
	SectionExperience     = "experience"
	SectionProjects       = "projects"
	SectionSkills         = "skills"
	SectionEducation      = "education"
	SectionCertifications = "certifications"
	SectionAchievements   = "achievements"
)

// SectionNames lists every section the detector reports, in display order.
var SectionNames = []string{
	SectionSummary,
	SectionExperience,
	SectionProjects,
	SectionSkills,
	SectionEducation,
	SectionCertifications,
	SectionAchievements,
}

// ATSBreakdown is the itemized explanation of an ATS score. Ratios are rounded
// to 3 decimals and readability to 1 decimal. Error is set only when the
// input could not be scored.
type ATSBreakdown struct {
	SectionsDetected     map[string]bool `json:"sections_detected"`
	SectionCoverage      float64         `json:"section_coverage"`
	KeywordMatchRate     float64         `json:"keyword_match_rate"`
	QuantificationSignal float64         `json:"quantification_signal"`
	Readability          float64         `json:"readability"`
	FormattingPenalty    float64         `json:"formatting_penalty"`
	Error                string          `json:"error,omitempty"`
}

// EmptySections returns a section map with every section set to false.
func EmptySections() map[string]bool {
	m := make(map[string]bool, len(SectionNames))
	for _, name := range SectionNames {
		m[name] = false
	}
	return m
}
