package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/jonathan/resume-reviewer/internal/ats"
	"github.com/jonathan/resume-reviewer/internal/ingestion"
	"github.com/jonathan/resume-reviewer/internal/parsing"
	"github.com/jonathan/resume-reviewer/internal/review"
	"github.com/jonathan/resume-reviewer/internal/types"
)

// ReviewRequest is the body of POST /review.
type ReviewRequest struct {
	ResumeText     string   `json:"resume_text"`
	JDText         string   `json:"jd_text"`
	TargetRole     string   `json:"target_role"`
	GuidanceBlobs  []string `json:"guidance_blobs"`
	RequiredSkills []string `json:"required_skills"`
}

// UploadReviewResponse is a review of an uploaded file.
type UploadReviewResponse struct {
	*types.ReviewResult
	PageCount int    `json:"page_count"`
	Format    string `json:"format"`
}

// ScoreRequest is the body of POST /score.
type ScoreRequest struct {
	Text           string   `json:"text"`
	RequiredSkills []string `json:"required_skills"`
}

// ScoreResponse is the ATS score and its breakdown.
type ScoreResponse struct {
	Score     float64            `json:"score"`
	Breakdown types.ATSBreakdown `json:"breakdown"`
}

// PredictRequest is the body of POST /predict.
type PredictRequest struct {
	Text string `json:"text" validate:"required"`
}

// PredictResponse is a predicted role.
type PredictResponse struct {
	Role       string  `json:"role"`
	Confidence float64 `json:"confidence"`
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Text string `json:"text" validate:"required"`
	K    int    `json:"k" validate:"omitempty,min=1,max=20"`
}

// QueryMatch is one nearest role.
type QueryMatch struct {
	Role       string   `json:"role"`
	Similarity float64  `json:"similarity"`
	Skills     []string `json:"skills"`
	Guidance   string   `json:"guidance"`
}

// QueryResponse lists nearest roles, most similar first.
type QueryResponse struct {
	Matches []QueryMatch `json:"matches"`
}

// KnowledgeBaseStatus describes the loaded role index.
type KnowledgeBaseStatus struct {
	Available bool   `json:"available"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	BuildID   string `json:"build_id,omitempty"`
	Roles     int    `json:"roles"`
	Embedder  string `json:"embedder,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string              `json:"status"`
	KnowledgeBase KnowledgeBaseStatus `json:"knowledge_base"`
}

// handleHealth reports liveness and the knowledge base state. The server is
// healthy in degraded mode too.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, HealthResponse{
		Status: "ok",
		KnowledgeBase: KnowledgeBaseStatus{
			Available: s.kb.Available(),
			Status:    string(s.kb.Status),
			Message:   s.kb.Message(),
			BuildID:   s.kb.Index.BuildID(),
			Roles:     s.kb.Index.Len(),
			Embedder:  s.kb.Index.EmbedderName(),
		},
	})
}

func (s *Server) requireKnowledgeBase() error {
	if !s.kb.Available() {
		return &ErrUnavailable{Message: s.kb.Message()}
	}
	return nil
}

func (s *Server) handleRoles(w http.ResponseWriter, _ *http.Request) {
	if err := s.requireKnowledgeBase(); err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string][]string{"roles": s.kb.Index.Roles()})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, err)
		return
	}
	res := s.reviewer.Review(r.Context(), review.Request{
		ResumeText:     req.ResumeText,
		JDText:         req.JDText,
		TargetRole:     req.TargetRole,
		GuidanceBlobs:  req.GuidanceBlobs,
		RequiredSkills: req.RequiredSkills,
	})
	s.jsonResponse(w, http.StatusOK, res)
}

// handleReviewUpload reviews a resume uploaded as multipart form field
// "file" (PDF, DOCX, HTML or text). Optional form fields: "jd_text",
// "target_role" and comma-separated "required_skills".
func (s *Server) handleReviewUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errorResponse(w, &ErrPayloadTooLarge{Limit: tooLarge.Limit})
			return
		}
		s.errorResponse(w, &ErrValidation{Field: "file", Message: "invalid multipart form: " + err.Error()})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.errorResponse(w, &ErrValidation{Field: "file", Message: "required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.errorResponse(w, &ErrValidation{Field: "file", Message: "unreadable upload: " + err.Error()})
		return
	}
	doc, err := ingestion.Extract(header.Filename, data)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	res := s.reviewer.Review(r.Context(), review.Request{
		ResumeText:     doc.Text,
		JDText:         r.FormValue("jd_text"),
		TargetRole:     r.FormValue("target_role"),
		RequiredSkills: splitSkills(r.FormValue("required_skills")),
	})
	s.jsonResponse(w, http.StatusOK, UploadReviewResponse{ReviewResult: res, PageCount: doc.PageCount, Format: doc.Format})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, err)
		return
	}
	score, breakdown := ats.Score(ingestion.CleanText(req.Text), req.RequiredSkills)
	s.jsonResponse(w, http.StatusOK, ScoreResponse{Score: score, Breakdown: breakdown})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, err)
		return
	}
	if err := s.requireKnowledgeBase(); err != nil {
		s.errorResponse(w, err)
		return
	}
	role, confidence, err := s.kb.Index.PredictRole(ingestion.CleanText(req.Text))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, PredictResponse{Role: role, Confidence: confidence})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, err)
		return
	}
	if err := s.requireKnowledgeBase(); err != nil {
		s.errorResponse(w, err)
		return
	}
	k := req.K
	if k == 0 {
		k = s.queryK
	}
	matches, err := s.kb.Index.Query(r.Context(), ingestion.CleanText(req.Text), k)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	out := QueryResponse{Matches: make([]QueryMatch, 0, len(matches))}
	for _, m := range matches {
		out.Matches = append(out.Matches, QueryMatch{
			Role:       m.Record.JobPosition,
			Similarity: m.Score,
			Skills:     m.Record.Skills,
			Guidance:   m.Record.Text,
		})
	}
	s.jsonResponse(w, http.StatusOK, out)
}

// splitSkills accepts skills as one comma-separated form value.
func splitSkills(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return parsing.SplitCSVList(v)
}
