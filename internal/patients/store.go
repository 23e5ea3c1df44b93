// Package patients provides read-only access to the patient record
// collaborator. Records are owned and mutated elsewhere; this store only
// reads them.
package patients

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/caldermed/triage/internal/domain"
)

// Store loads the fixed-shape patient records from a JSON file and serves
// lookups by id. The file is read once on first use.
type Store struct {
	path string

	mu      sync.RWMutex
	loaded  bool
	byID    map[string]*domain.PatientRecord
	ordered []string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Get returns the record for a patient id, or ErrPatientNotFound.
func (s *Store) Get(patientID string) (*domain.PatientRecord, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.byID[patientID]
	if !ok {
		return nil, domain.ErrPatientNotFound
	}

	// Return a copy so callers cannot mutate the stored record.
	clone := *record
	clone.Symptoms = append([]string(nil), record.Symptoms...)
	clone.MedicalHistory = append([]string(nil), record.MedicalHistory...)
	return &clone, nil
}

// List returns all patient ids in file order.
func (s *Store) List() ([]string, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.ordered...), nil
}

func (s *Store) ensureLoaded() error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read patients file %s: %w", s.path, err)
	}

	var records []domain.PatientRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to parse patients file %s: %w", s.path, err)
	}

	s.byID = make(map[string]*domain.PatientRecord, len(records))
	s.ordered = make([]string, 0, len(records))
	for i := range records {
		r := &records[i]
		if r.PatientID == "" {
			continue
		}
		if _, exists := s.byID[r.PatientID]; exists {
			continue
		}
		s.byID[r.PatientID] = r
		s.ordered = append(s.ordered, r.PatientID)
	}

	s.loaded = true
	return nil
}
