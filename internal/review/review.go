// Package review orchestrates a resume review: role prediction, guidance
// lookup, ATS scoring and feedback generation with a local fallback.
package review

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-reviewer/internal/ats"
	"github.com/jonathan/resume-reviewer/internal/feedback"
	"github.com/jonathan/resume-reviewer/internal/ingestion"
	"github.com/jonathan/resume-reviewer/internal/logging"
	"github.com/jonathan/resume-reviewer/internal/types"
	"github.com/sirupsen/logrus"
)

// Defaults for Options.
const (
	DefaultRole         = "General"
	DefaultRelatedRoles = 3
)

// KnowledgeBase is the role index as seen by the reviewer.
type KnowledgeBase interface {
	Len() int
	PredictRole(text string) (string, float64, error)
	Lookup(role string) []types.RoleRecord
	Query(ctx context.Context, text string, k int) ([]types.RoleMatch, error)
}

// Options tunes a Reviewer.
type Options struct {
	DefaultRole  string
	RelatedRoles int
}

// Request is one review call.
type Request struct {
	ResumeText     string
	JDText         string
	TargetRole     string
	GuidanceBlobs  []string
	RequiredSkills []string
}

// Reviewer runs reviews. It holds no per-request state and is safe for
// concurrent use.
type Reviewer struct {
	kb  KnowledgeBase
	gen feedback.Generator
	log logrus.FieldLogger

	defaultRole  string
	relatedRoles int
}

// New creates a Reviewer. kb may be nil when the knowledge base is
// unavailable; gen may be nil when no generator is configured.
func New(kb KnowledgeBase, gen feedback.Generator, logger logrus.FieldLogger, opts Options) *Reviewer {
	if gen == nil {
		gen = feedback.Unconfigured{}
	}
	if strings.TrimSpace(opts.DefaultRole) == "" {
		opts.DefaultRole = DefaultRole
	}
	if opts.RelatedRoles <= 0 {
		opts.RelatedRoles = DefaultRelatedRoles
	}
	return &Reviewer{
		kb:           kb,
		gen:          gen,
		log:          logging.OrDiscard(logger),
		defaultRole:  strings.TrimSpace(opts.DefaultRole),
		relatedRoles: opts.RelatedRoles,
	}
}

// KnowledgeBaseAvailable reports whether reviews can use the role index.
func (r *Reviewer) KnowledgeBaseAvailable() bool {
	return r.kb != nil && r.kb.Len() > 0
}

// Review always returns a complete result. Knowledge base and generator
// failures degrade the result instead of failing it.
func (r *Reviewer) Review(ctx context.Context, req Request) *types.ReviewResult {
	start := time.Now()
	res := &types.ReviewResult{
		ReviewID:               uuid.NewString(),
		KnowledgeBaseAvailable: r.KnowledgeBaseAvailable(),
	}
	log := r.log.WithField("review_id", res.ReviewID)

	resume := ingestion.CleanText(req.ResumeText)
	jd := ingestion.CleanText(req.JDText)

	if res.KnowledgeBaseAvailable && resume != "" {
		role, confidence, err := r.kb.PredictRole(resume)
		if err != nil {
			log.WithError(err).Warn("role prediction failed")
		} else {
			res.PredictedRole = &role
			res.PredictedConfidence = round4(confidence)
		}
	}

	res.TargetRole = r.resolveTargetRole(req.TargetRole, res.PredictedRole)

	guidance, skills := r.resolveGuidance(res.TargetRole, req)

	if res.KnowledgeBaseAvailable && resume != "" {
		matches, err := r.kb.Query(ctx, resume, r.relatedRoles)
		if err != nil {
			log.WithError(err).Warn("related role query failed")
		}
		for _, m := range matches {
			res.RelatedRoles = append(res.RelatedRoles, types.RelatedRole{
				Role:       m.Record.JobPosition,
				Similarity: round4(m.Score),
			})
			guidance = appendGuidance(guidance, m.Record.Text)
		}
	}

	if resume == "" {
		res.ATSScore, res.ATSBreakdown = 0, ats.EmptyBreakdown()
	} else {
		res.ATSScore, res.ATSBreakdown = ats.Score(resume+"\n"+jd, skills)
	}

	res.FeedbackPayload, res.LLMUsed = r.generateFeedback(ctx, log, feedback.PromptInput{
		Role:       res.TargetRole,
		JDText:     jd,
		ResumeText: resume,
		Guidance:   guidance,
	}, skills)

	log.WithFields(logrus.Fields{
		"target_role": res.TargetRole,
		"predicted":   res.PredictedRole != nil,
		"ats_score":   res.ATSScore,
		"llm_used":    res.LLMUsed,
		"took_ms":     time.Since(start).Milliseconds(),
	}).Info("review complete")
	return res
}

func (r *Reviewer) resolveTargetRole(explicit string, predicted *string) string {
	if role := strings.TrimSpace(explicit); role != "" {
		return role
	}
	if predicted != nil && strings.TrimSpace(*predicted) != "" {
		return *predicted
	}
	return r.defaultRole
}

// resolveGuidance returns the stored guidance and skills of role when the
// knowledge base has it, and the caller-supplied ones otherwise. Records
// sharing the role name contribute their guidance and skills in corpus order.
func (r *Reviewer) resolveGuidance(role string, req Request) ([]string, []string) {
	if r.KnowledgeBaseAvailable() {
		if recs := r.kb.Lookup(role); len(recs) > 0 {
			var guidance []string
			skills := make([]string, 0)
			for _, rec := range recs {
				guidance = appendGuidance(guidance, rec.Text)
				skills = append(skills, rec.Skills...)
			}
			return guidance, skills
		}
	}
	var guidance []string
	for _, g := range req.GuidanceBlobs {
		guidance = appendGuidance(guidance, g)
	}
	return guidance, req.RequiredSkills
}

// appendGuidance adds blob unless it is blank, already present or the
// prompt already has enough guidance.
func appendGuidance(guidance []string, blob string) []string {
	if strings.TrimSpace(blob) == "" || len(guidance) >= feedback.MaxGuidanceBlobs {
		return guidance
	}
	for _, g := range guidance {
		if g == blob {
			return guidance
		}
	}
	return append(guidance, blob)
}

func (r *Reviewer) generateFeedback(ctx context.Context, log logrus.FieldLogger, in feedback.PromptInput, skills []string) (string, bool) {
	fallback := func() string {
		return feedback.Fallback(feedback.FallbackInput{
			Role:           in.Role,
			ResumeText:     in.ResumeText,
			RequiredSkills: skills,
		})
	}

	req, err := feedback.BuildRequest(in)
	if err != nil {
		log.WithError(err).Error("failed to build feedback prompt")
		return fallback(), false
	}

	out, err := r.gen.Generate(ctx, req)
	switch {
	case err != nil:
		log.WithError(err).Warn("feedback generator failed, using local fallback")
		return fallback(), false
	case strings.TrimSpace(out) == "":
		log.Warn("feedback generator returned nothing, using local fallback")
		return fallback(), false
	case feedback.IsSentinel(out):
		log.Debug("feedback generator not configured, using local fallback")
		return fallback(), false
	}
	return out, true
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
