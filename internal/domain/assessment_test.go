package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAssessmentResult(t *testing.T) {
	citation := Citation{Page: 12, Section: "1.1", Excerpt: "Refer urgently.", Score: 0.8}

	tests := []struct {
		name    string
		result  *AssessmentResult
		wantErr bool
	}{
		{
			"valid urgent referral",
			&AssessmentResult{
				PatientID:    "PT-101",
				RiskCategory: RiskUrgentReferral,
				Reasoning:    "Meets NG12 lung cancer criteria.",
				Citations:    []Citation{citation},
			},
			false,
		},
		{
			"routine without citations",
			&AssessmentResult{
				PatientID:    "PT-104",
				RiskCategory: RiskRoutine,
				Reasoning:    "No urgent criteria met.",
			},
			false,
		},
		{
			"nil result",
			nil,
			true,
		},
		{
			"unknown category",
			&AssessmentResult{
				PatientID:    "PT-101",
				RiskCategory: RiskCategory("Emergency"),
				Reasoning:    "x",
				Citations:    []Citation{citation},
			},
			true,
		},
		{
			"missing reasoning",
			&AssessmentResult{
				PatientID:    "PT-101",
				RiskCategory: RiskUrgentReferral,
				Citations:    []Citation{citation},
			},
			true,
		},
		{
			"urgent without citations",
			&AssessmentResult{
				PatientID:    "PT-101",
				RiskCategory: RiskUrgentInvestigation,
				Reasoning:    "Warrants urgent imaging.",
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAssessmentResult(tt.result)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, ClampConfidence(-0.3))
	assert.Equal(t, 1.0, ClampConfidence(1.7))
	assert.Equal(t, 0.85, ClampConfidence(0.85))
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, "chunk_abc123def456_p012_03", ChunkID("abc123def456", 12, 3))
	assert.Equal(t, "chunk_abc123def456_p001_00", ChunkID("abc123def456", 1, 0))
}

func TestValidateChatTurn(t *testing.T) {
	assert.NoError(t, ValidateChatTurn(&ChatTurn{Role: ChatRoleUser, Text: "hi"}))
	assert.NoError(t, ValidateChatTurn(&ChatTurn{Role: ChatRoleAssistant, Text: "hello"}))

	assert.Error(t, ValidateChatTurn(nil))
	assert.ErrorIs(t, ValidateChatTurn(&ChatTurn{Role: ChatRole("system"), Text: "x"}), ErrInvalidChatRole)
	assert.Error(t, ValidateChatTurn(&ChatTurn{Role: ChatRoleUser}))
	assert.Error(t, ValidateChatTurn(&ChatTurn{Role: ChatRoleUser, Text: "   \t\n"}))
}
