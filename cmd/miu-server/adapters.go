package main

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/kdu-mi/miu-server/internal/domain/deletion"
	"github.com/kdu-mi/miu-server/internal/domain/notification"
	"github.com/kdu-mi/miu-server/internal/domain/patient"
)

// recordStoreAdapter exposes the patient service through the record-store
// contract the deletion workflow consumes, translating sentinel errors so
// the workflow stays decoupled from the patient package.
type recordStoreAdapter struct {
	patients *patient.Service
}

func (a *recordStoreAdapter) FindPatientByIndex(ctx context.Context, indexNo string) (*deletion.PatientInfo, error) {
	p, err := a.patients.FindPatientByIndex(ctx, indexNo)
	if err != nil {
		if errors.Is(err, patient.ErrPatientNotFound) {
			return nil, deletion.ErrPatientNotFound
		}
		return nil, err
	}
	return &deletion.PatientInfo{IndexNo: p.IndexNo, Name: p.Name, Email: p.Email}, nil
}

func (a *recordStoreAdapter) EnsureMedicalRecord(ctx context.Context, rawRef, patientIndexNo string) (uuid.UUID, error) {
	return a.patients.EnsureRecord(ctx, rawRef, patientIndexNo)
}

func (a *recordStoreAdapter) DeleteMedicalRecord(ctx context.Context, id uuid.UUID) error {
	err := a.patients.DeleteRecord(ctx, id)
	if errors.Is(err, patient.ErrRecordNotFound) {
		// Already gone, which is fine for a confirmed deletion.
		return nil
	}
	return err
}

func (a *recordStoreAdapter) DeletePatientByIndex(ctx context.Context, indexNo string) (int64, error) {
	return a.patients.DeletePatientByIndex(ctx, indexNo)
}

// notifierAdapter routes workflow notifications into the in-app sink.
type notifierAdapter struct {
	sink *notification.Service
}

func (a *notifierAdapter) Emit(ctx context.Context, recipient, category, typ, sourceID, message string) error {
	return a.sink.Emit(ctx, recipient, category, typ, sourceID, message)
}
