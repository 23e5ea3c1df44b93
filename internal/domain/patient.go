package domain

// PatientRecord is the fixed-shape record returned by the patient lookup
// service. The triage core treats it as immutable read-only input.
type PatientRecord struct {
	PatientID           string   `json:"patient_id"`
	Name                string   `json:"name"`
	Age                 int      `json:"age"`
	Gender              string   `json:"gender"`
	SmokingHistory      string   `json:"smoking_history"`
	Symptoms            []string `json:"symptoms"`
	SymptomDurationDays int      `json:"symptom_duration_days"`
	MedicalHistory      []string `json:"medical_history,omitempty"`
}
