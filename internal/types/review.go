package types

// ReviewResult is the complete outcome of one resume review.
type ReviewResult struct {
	ReviewID               string        `json:"review_id"`
	PredictedRole          *string       `json:"predicted_role"`
	PredictedConfidence    float64       `json:"predicted_confidence,omitempty"`
	TargetRole             string        `json:"target_role"`
	KnowledgeBaseAvailable bool          `json:"knowledge_base_available"`
	RelatedRoles           []RelatedRole `json:"related_roles,omitempty"`
	LLMUsed                bool          `json:"llm_used"`
	ATSScore               float64       `json:"ats_score"`
	ATSBreakdown           ATSBreakdown  `json:"ats_breakdown"`
	FeedbackPayload        string        `json:"feedback_payload"`
}
