package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/caldermed/triage/internal/domain"
)

const maxExcerptChars = 500

// stripFences removes markdown code fences the model sometimes wraps its
// JSON in despite instructions.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+len("```"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	}
	return strings.TrimSpace(text)
}

type rawAssessment struct {
	Assessment       string            `json:"assessment"`
	Reasoning        string            `json:"reasoning"`
	Citations        []domain.Citation `json:"citations"`
	RelevantSymptoms []string          `json:"relevant_symptoms"`
	Confidence       float64           `json:"confidence"`
}

// parseAssessment decodes and validates the model's final assessment
// output. Any failure is a schema violation the caller may retry once.
func parseAssessment(patientID, text string) (*domain.AssessmentResult, error) {
	var raw rawAssessment
	if err := json.Unmarshal([]byte(stripFences(text)), &raw); err != nil {
		return nil, fmt.Errorf("assessment output is not valid JSON: %w", err)
	}

	result := &domain.AssessmentResult{
		PatientID:        patientID,
		RiskCategory:     domain.RiskCategory(raw.Assessment),
		Reasoning:        strings.TrimSpace(raw.Reasoning),
		Citations:        raw.Citations,
		RelevantSymptoms: raw.RelevantSymptoms,
		Confidence:       domain.ClampConfidence(raw.Confidence),
	}
	if result.Citations == nil {
		result.Citations = []domain.Citation{}
	}
	if result.RelevantSymptoms == nil {
		result.RelevantSymptoms = []string{}
	}

	if err := domain.ValidateAssessmentResult(result); err != nil {
		return nil, err
	}
	return result, nil
}

type rawChatResult struct {
	Answer    string                `json:"answer"`
	Citations []domain.ChatCitation `json:"citations"`
}

// parseChatResult decodes and validates the model's chat output,
// normalizing citation fields.
func parseChatResult(text string) (*domain.ChatResult, error) {
	var raw rawChatResult
	if err := json.Unmarshal([]byte(stripFences(text)), &raw); err != nil {
		return nil, fmt.Errorf("chat output is not valid JSON: %w", err)
	}

	answer := strings.TrimSpace(raw.Answer)
	if answer == "" {
		return nil, fmt.Errorf("chat output is missing an answer")
	}

	citations := make([]domain.ChatCitation, 0, len(raw.Citations))
	for _, c := range raw.Citations {
		if c.Source == "" {
			c.Source = "NG12 PDF"
		}
		if c.ChunkID == "" {
			c.ChunkID = "unknown"
		}
		if runes := []rune(c.Excerpt); len(runes) > maxExcerptChars {
			c.Excerpt = string(runes[:maxExcerptChars])
		}
		citations = append(citations, c)
	}

	return &domain.ChatResult{Answer: answer, Citations: citations}, nil
}
