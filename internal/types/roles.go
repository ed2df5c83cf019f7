// Package types provides type definitions for structured data used throughout the resume-reviewer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "slices"

// CorpusRow is one row of the role corpus. Missing columns are empty strings.
type CorpusRow struct {
	JobPosition            string `json:"job_position"`
	RelevantSkills         string `json:"relevant_skills"` // comma-separated
	RequiredQualifications string `json:"required_qualifications"`
	JobResponsibilities    string `json:"job_responsibilities"`
	IdealCandidateSummary  string `json:"ideal_candidate_summary"`
}

// RoleRecord is the stored form of one corpus row.
type RoleRecord struct {
	JobPosition     string   `json:"job_position"`
	JobPositionNorm string   `json:"job_position_norm"`
	Skills          []string `json:"skills"`
	SkillsNorm      []string `json:"skills_norm"`
	Text            string   `json:"text"` // guidance blob
}

// Clone returns a deep copy so callers cannot mutate index-owned slices.
func (r RoleRecord) Clone() RoleRecord {
	c := r
	c.Skills = slices.Clone(r.Skills)
	c.SkillsNorm = slices.Clone(r.SkillsNorm)
	return c
}

// RoleMatch is a nearest-neighbor hit from the role index.
type RoleMatch struct {
	Record RoleRecord `json:"record"`
	Score  float64    `json:"score"`
}

// RelatedRole is the compact form of a RoleMatch shown in review results.
type RelatedRole struct {
	Role       string  `json:"role"`
	Similarity float64 `json:"similarity"`
}
