package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/caldermed/triage/internal/domain"
)

type MockPatientService struct {
	mock.Mock
}

func (m *MockPatientService) Get(patientID string) (*domain.PatientRecord, error) {
	args := m.Called(patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PatientRecord), args.Error(1)
}

func (m *MockPatientService) List() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func TestPatientHandler_List(t *testing.T) {
	mockSvc := new(MockPatientService)
	handler := NewPatientHandler(mockSvc)

	mockSvc.On("List").Return([]string{"PT-101", "PT-102"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data PatientListResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"PT-101", "PT-102"}, resp.Data.Patients)
	assert.Equal(t, 2, resp.Data.Count)
	mockSvc.AssertExpectations(t)
}

func TestPatientHandler_List_StoreError(t *testing.T) {
	mockSvc := new(MockPatientService)
	handler := NewPatientHandler(mockSvc)

	mockSvc.On("List").Return(nil, errors.New("failed to read patients file"))

	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
