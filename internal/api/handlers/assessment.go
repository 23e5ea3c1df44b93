package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/caldermed/triage/internal/api"
	"github.com/caldermed/triage/internal/domain"
)

type AssessmentService interface {
	Assess(ctx context.Context, patientID string) (*domain.AssessmentResult, error)
}

type AssessmentHandler struct {
	svc AssessmentService
}

func NewAssessmentHandler(svc AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{svc: svc}
}

type AssessRequest struct {
	PatientID string `json:"patient_id"`
}

func (h *AssessmentHandler) Assess(w http.ResponseWriter, r *http.Request) {
	var req AssessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.PatientID == "" {
		api.Error(w, http.StatusBadRequest, "patient_id is required")
		return
	}

	result, err := h.svc.Assess(r.Context(), req.PatientID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}
