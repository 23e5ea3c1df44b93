package handlers

import (
	"net/http"

	"github.com/caldermed/triage/internal/api"
	"github.com/caldermed/triage/internal/domain"
)

type PatientService interface {
	Get(patientID string) (*domain.PatientRecord, error)
	List() ([]string, error)
}

type PatientHandler struct {
	svc PatientService
}

func NewPatientHandler(svc PatientService) *PatientHandler {
	return &PatientHandler{svc: svc}
}

type PatientListResponse struct {
	Patients []string `json:"patients"`
	Count    int      `json:"count"`
}

func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.List()
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, PatientListResponse{Patients: ids, Count: len(ids)})
}
