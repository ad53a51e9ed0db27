package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound  = errors.New("patient not found")
	ErrRecordNotFound   = errors.New("medical record not found")
	ErrDuplicateIndexNo = errors.New("a patient with this index number already exists")
)

type Service struct {
	patients PatientRepository
	records  MedicalRecordRepository
}

func NewService(patients PatientRepository, records MedicalRecordRepository) *Service {
	return &Service{patients: patients, records: records}
}

// -- Patients --

func (s *Service) RegisterPatient(ctx context.Context, p *Patient) error {
	p.IndexNo = strings.TrimSpace(p.IndexNo)
	if p.IndexNo == "" {
		return fmt.Errorf("index_no is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(p.Email) == "" {
		return fmt.Errorf("email is required")
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

// FindPatientByIndex looks a patient up by the human-facing index number.
func (s *Service) FindPatientByIndex(ctx context.Context, indexNo string) (*Patient, error) {
	indexNo = strings.TrimSpace(indexNo)
	if indexNo == "" {
		return nil, fmt.Errorf("index_no is required")
	}
	return s.patients.GetByIndexNo(ctx, indexNo)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.patients.Delete(ctx, id)
}

// DeletePatientByIndex removes the patient row for an index number. It is
// best effort: deleting a patient that is already gone is not an error, the
// returned count is zero in that case.
func (s *Service) DeletePatientByIndex(ctx context.Context, indexNo string) (int64, error) {
	return s.patients.DeleteByIndexNo(ctx, indexNo)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) SearchPatients(ctx context.Context, term string, limit, offset int) ([]*Patient, int, error) {
	if strings.TrimSpace(term) == "" {
		return s.patients.List(ctx, limit, offset)
	}
	return s.patients.Search(ctx, term, limit, offset)
}

// -- Medical records --

func (s *Service) CreateRecord(ctx context.Context, m *MedicalRecord) error {
	m.PatientIndexNo = strings.TrimSpace(m.PatientIndexNo)
	if m.PatientIndexNo == "" {
		return fmt.Errorf("patient_index_no is required")
	}
	if strings.TrimSpace(m.Diagnosis) == "" {
		return fmt.Errorf("diagnosis is required")
	}
	if _, err := s.patients.GetByIndexNo(ctx, m.PatientIndexNo); err != nil {
		return err
	}
	return s.records.Create(ctx, m)
}

func (s *Service) GetRecord(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	return s.records.GetByID(ctx, id)
}

func (s *Service) UpdateRecord(ctx context.Context, m *MedicalRecord) error {
	if strings.TrimSpace(m.Diagnosis) == "" {
		return fmt.Errorf("diagnosis is required")
	}
	return s.records.Update(ctx, m)
}

func (s *Service) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	return s.records.Delete(ctx, id)
}

func (s *Service) ListRecords(ctx context.Context, limit, offset int) ([]*MedicalRecord, int, error) {
	return s.records.List(ctx, limit, offset)
}

func (s *Service) ListRecordsByPatient(ctx context.Context, indexNo string, limit, offset int) ([]*MedicalRecord, int, error) {
	return s.records.ListByPatient(ctx, indexNo, limit, offset)
}

// EnsureRecord resolves rawID to an existing medical record, or registers a
// placeholder record for the patient when rawID is not a known record. Legacy
// clients submit record identifiers that were never minted here, so a
// placeholder keeps referential integrity for the rest of the system.
func (s *Service) EnsureRecord(ctx context.Context, rawID, patientIndexNo string) (uuid.UUID, error) {
	if id, err := uuid.Parse(rawID); err == nil {
		if existing, err := s.records.GetByID(ctx, id); err == nil {
			return existing.ID, nil
		} else if !errors.Is(err, ErrRecordNotFound) {
			return uuid.Nil, err
		}
		placeholder := &MedicalRecord{
			ID:             id,
			PatientIndexNo: patientIndexNo,
			Diagnosis:      "Unspecified",
		}
		if err := s.records.Create(ctx, placeholder); err != nil {
			return uuid.Nil, err
		}
		return id, nil
	}

	placeholder := &MedicalRecord{
		PatientIndexNo: patientIndexNo,
		Diagnosis:      "Unspecified",
	}
	if err := s.records.Create(ctx, placeholder); err != nil {
		return uuid.Nil, err
	}
	return placeholder.ID, nil
}
