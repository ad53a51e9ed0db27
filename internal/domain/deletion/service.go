package deletion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrRequestNotFound  = errors.New("deletion request not found")
	ErrPatientNotFound  = errors.New("patient not found")
	ErrDuplicatePending = errors.New("a deletion request for this record is already pending")
	ErrAlreadyResponded = errors.New("request has already been responded to")
	ErrNotAwaitingAdmin = errors.New("request is not awaiting admin confirmation")
	ErrAlreadyDismissed = errors.New("request has already been dismissed")
	ErrNotOwner         = errors.New("request belongs to a different patient")
	ErrReasonRequired   = errors.New("reason is required")
	ErrInvalidResponse  = errors.New("response must be approved or rejected")
)

// PatientInfo is the subset of patient data the workflow snapshots at
// request creation.
type PatientInfo struct {
	IndexNo string
	Name    string
	Email   string
}

// RecordStore is the externally owned patient/record storage the workflow
// reads from and, on a confirmed request, deletes from.
type RecordStore interface {
	FindPatientByIndex(ctx context.Context, indexNo string) (*PatientInfo, error)
	// EnsureMedicalRecord resolves rawRef to a concrete record id, creating
	// a placeholder when the reference does not name an existing record.
	EnsureMedicalRecord(ctx context.Context, rawRef, patientIndexNo string) (uuid.UUID, error)
	DeleteMedicalRecord(ctx context.Context, id uuid.UUID) error
	// DeletePatientByIndex is best effort; an absent patient is not an error.
	DeletePatientByIndex(ctx context.Context, indexNo string) (int64, error)
}

// Notifier delivers in-app notifications. Failures are logged by the
// workflow and never surfaced to its caller.
type Notifier interface {
	Emit(ctx context.Context, recipient, category, typ, sourceID, message string) error
}

const (
	adminRecipient  = "admin"
	adminCategory   = "admin"
	patientCategory = "patient"

	defaultConfirmComment = "Deletion confirmed"
	defaultRejectComment  = "Deletion cancelled by admin"
)

// Service drives the two-party deletion approval workflow. Every state
// change goes through a conditional update in the repository, so concurrent
// callers cannot apply the same transition twice.
type Service struct {
	repo     Repository
	records  RecordStore
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, records RecordStore, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		records:  records,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateParams carries everything needed to open a request. RecordRef is the
// caller-supplied record identifier; it is resolved (or a placeholder
// created) through the record store.
type CreateParams struct {
	RecordRef      string
	PatientIndexNo string
	AdminID        string
	AdminName      string
	Reason         string
}

func (s *Service) Create(ctx context.Context, p CreateParams) (*Request, error) {
	if strings.TrimSpace(p.Reason) == "" {
		return nil, ErrReasonRequired
	}

	patient, err := s.records.FindPatientByIndex(ctx, p.PatientIndexNo)
	if err != nil {
		return nil, err
	}

	recordID, err := s.records.EnsureMedicalRecord(ctx, p.RecordRef, patient.IndexNo)
	if err != nil {
		return nil, fmt.Errorf("resolving medical record: %w", err)
	}

	req := &Request{
		MedicalRecordID: recordID,
		PatientIndexNo:  patient.IndexNo,
		PatientEmail:    patient.Email,
		AdminID:         p.AdminID,
		AdminName:       p.AdminName,
		Reason:          strings.TrimSpace(p.Reason),
		Status:          StatusPending,
		RequestedAt:     s.now(),
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, err
	}

	s.notify(ctx, req.PatientIndexNo, patientCategory, NotifyRequestReceived, req.ID,
		fmt.Sprintf("Admin %s requested deletion of one of your medical records: %s", req.AdminName, req.Reason))
	s.notify(ctx, adminRecipient, adminCategory, NotifyRequestAdmin, req.ID,
		fmt.Sprintf("Deletion request created for patient %s", req.PatientIndexNo))

	return req, nil
}

// Respond applies the patient's decision to a pending request. When
// callerIndexNo is non-empty it must match the owning patient; an empty
// caller index skips the ownership check for trusted internal callers.
func (s *Service) Respond(ctx context.Context, id uuid.UUID, response, comment, callerIndexNo string) (*Request, error) {
	next, err := userStatusFor(response)
	if err != nil {
		return nil, err
	}

	if callerIndexNo != "" {
		existing, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing.PatientIndexNo != callerIndexNo {
			return nil, ErrNotOwner
		}
	}

	req, err := s.repo.MarkUserResponded(ctx, id, next, s.now(), comment)
	if err != nil {
		return nil, err
	}

	if next == StatusUserApproved {
		s.notify(ctx, adminRecipient, adminCategory, NotifyUserApproved, req.ID,
			fmt.Sprintf("Patient %s approved the deletion request, awaiting your final confirmation", req.PatientIndexNo))
		s.notify(ctx, req.PatientIndexNo, patientCategory, NotifyPendingAdmin, req.ID,
			"Your approval was recorded; the deletion awaits final admin confirmation")
	} else {
		s.notify(ctx, adminRecipient, adminCategory, NotifyUserRejected, req.ID,
			fmt.Sprintf("Patient %s rejected the deletion request", req.PatientIndexNo))
	}

	return req, nil
}

// AdminConfirm applies the admin's final decision to a user-approved
// request. On confirm, the status is persisted first and the destructive
// deletes run afterwards; a failed delete is logged but never reverts the
// already committed confirmation.
func (s *Service) AdminConfirm(ctx context.Context, id uuid.UUID, response, comment string) (*Request, error) {
	var next Status
	switch response {
	case "confirm", "approved":
		next = StatusAdminConfirmed
		if strings.TrimSpace(comment) == "" {
			comment = defaultConfirmComment
		}
	case "reject", "rejected":
		next = StatusAdminRejected
		if strings.TrimSpace(comment) == "" {
			comment = defaultRejectComment
		}
	default:
		return nil, ErrInvalidResponse
	}

	req, err := s.repo.MarkAdminConfirmed(ctx, id, next, s.now(), comment)
	if err != nil {
		return nil, err
	}

	if next == StatusAdminConfirmed {
		if err := s.records.DeleteMedicalRecord(ctx, req.MedicalRecordID); err != nil {
			s.logger.Error().Err(err).
				Str("request_id", req.ID.String()).
				Str("medical_record_id", req.MedicalRecordID.String()).
				Msg("medical record delete failed after confirmation, needs reconciliation")
		}
		if _, err := s.records.DeletePatientByIndex(ctx, req.PatientIndexNo); err != nil {
			s.logger.Error().Err(err).
				Str("request_id", req.ID.String()).
				Str("patient_index_no", req.PatientIndexNo).
				Msg("patient delete failed after confirmation, needs reconciliation")
		}
		s.notify(ctx, req.PatientIndexNo, patientCategory, NotifyCompleted, req.ID,
			"Your medical record has been deleted as requested")
	} else {
		s.notify(ctx, req.PatientIndexNo, patientCategory, NotifyCancelled, req.ID,
			fmt.Sprintf("The deletion request was cancelled by the admin: %s", comment))
	}

	return req, nil
}

// Dismiss hides a request from the owning patient's list. It is orthogonal
// to status: terminal requests can be dismissed too.
func (s *Service) Dismiss(ctx context.Context, id uuid.UUID, callerIndexNo string) (*Request, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.PatientIndexNo != callerIndexNo {
		return nil, ErrNotOwner
	}
	return s.repo.MarkDismissed(ctx, id, s.now())
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Request, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListForPatient(ctx context.Context, indexNo string) ([]*Request, error) {
	return s.repo.ListByPatient(ctx, indexNo)
}

func (s *Service) ListAll(ctx context.Context) ([]*Request, error) {
	return s.repo.ListAll(ctx)
}

func (s *Service) ListPendingAdminConfirmation(ctx context.Context) ([]*Request, error) {
	return s.repo.ListPendingAdminConfirmation(ctx)
}

func (s *Service) CountPending(ctx context.Context, indexNo string) (int, error) {
	return s.repo.CountPending(ctx, indexNo)
}

// CleanupLegacyRequests removes rows left over from the single-step
// approval model that predates the current flow.
func (s *Service) CleanupLegacyRequests(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteByStatuses(ctx, []Status{StatusLegacyApproved, StatusLegacyRejected})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info().Int64("removed", n).Msg("legacy deletion requests cleaned up")
	}
	return n, nil
}

// RemoveRequest deletes one request from history regardless of its status.
func (s *Service) RemoveRequest(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func userStatusFor(response string) (Status, error) {
	switch response {
	case "approved", "approve":
		return StatusUserApproved, nil
	case "rejected", "reject":
		return StatusUserRejected, nil
	}
	return "", ErrInvalidResponse
}

// notify is fire and forget: a sink failure is logged and swallowed so the
// state transition stays the authoritative outcome.
func (s *Service) notify(ctx context.Context, recipient, category, typ string, sourceID uuid.UUID, message string) {
	if err := s.notifier.Emit(ctx, recipient, category, typ, sourceID.String(), message); err != nil {
		s.logger.Warn().Err(err).
			Str("recipient", recipient).
			Str("type", typ).
			Str("source_id", sourceID.String()).
			Msg("notification emit failed")
	}
}
