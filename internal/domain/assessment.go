package domain

import (
	"fmt"
	"time"
)

// RiskCategory is the triage outcome of an assessment.
type RiskCategory string

const (
	RiskUrgentReferral      RiskCategory = "Urgent Referral"
	RiskUrgentInvestigation RiskCategory = "Urgent Investigation"
	RiskRoutine             RiskCategory = "Routine"
)

// Citation ties a clinical claim back to a guideline passage.
type Citation struct {
	Page    int     `json:"page_number"`
	Section string  `json:"section"`
	Excerpt string  `json:"content"`
	Score   float64 `json:"relevance_score"`
}

// AssessmentResult is the structured outcome of one assessment request.
// It is created once, validated, and never mutated afterwards.
type AssessmentResult struct {
	PatientID        string       `json:"patient_id"`
	RiskCategory     RiskCategory `json:"assessment"`
	Reasoning        string       `json:"reasoning"`
	Citations        []Citation   `json:"citations"`
	RelevantSymptoms []string     `json:"relevant_symptoms"`
	Confidence       float64      `json:"confidence"`
	Timestamp        time.Time    `json:"timestamp"`
}

// ValidateAssessmentResult enforces the output contract: a known risk
// category, non-empty reasoning, and at least one citation for any
// non-Routine category.
func ValidateAssessmentResult(r *AssessmentResult) error {
	if r == nil {
		return fmt.Errorf("assessment result cannot be nil")
	}

	if !isValidRiskCategory(r.RiskCategory) {
		return fmt.Errorf("%w: %q", ErrInvalidRiskCategory, r.RiskCategory)
	}

	if r.Reasoning == "" {
		return fmt.Errorf("assessment reasoning is required")
	}

	if r.RiskCategory != RiskRoutine && len(r.Citations) == 0 {
		return fmt.Errorf("non-routine assessment requires at least one citation")
	}

	return nil
}

// ClampConfidence bounds a model-reported confidence to [0, 1].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func isValidRiskCategory(c RiskCategory) bool {
	switch c {
	case RiskUrgentReferral, RiskUrgentInvestigation, RiskRoutine:
		return true
	}
	return false
}
