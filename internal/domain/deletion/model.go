package deletion

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a deletion request. Transitions only move
// forward: pending may become user_approved or user_rejected, and
// user_approved may become admin_confirmed or admin_rejected. The three
// latter states are terminal.
type Status string

const (
	StatusPending        Status = "pending"
	StatusUserApproved   Status = "user_approved"
	StatusUserRejected   Status = "user_rejected"
	StatusAdminConfirmed Status = "admin_confirmed"
	StatusAdminRejected  Status = "admin_rejected"

	// Legacy single-step statuses that predate the two-party flow. They are
	// never produced anymore but may still exist in old rows; cleanup removes
	// them.
	StatusLegacyApproved Status = "approved"
	StatusLegacyRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusUserApproved, StatusUserRejected,
		StatusAdminConfirmed, StatusAdminRejected:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	switch s {
	case StatusUserRejected, StatusAdminConfirmed, StatusAdminRejected:
		return true
	}
	return false
}

// CanUserRespond reports whether the patient response transition is legal.
func (s Status) CanUserRespond() bool { return s == StatusPending }

// CanAdminConfirm reports whether the admin confirmation transition is legal.
func (s Status) CanAdminConfirm() bool { return s == StatusUserApproved }

// Notification types emitted on transitions. SourceID is always the request
// id so repeated emissions collapse.
const (
	NotifyRequestReceived = "deletion_request_received"
	NotifyRequestAdmin    = "deletion_request_admin"
	NotifyUserApproved    = "deletion_user_approved"
	NotifyPendingAdmin    = "deletion_pending_admin"
	NotifyUserRejected    = "deletion_user_rejected"
	NotifyCompleted       = "deletion_completed"
	NotifyCancelled       = "deletion_cancelled"
)

// Request is one admin-initiated request to delete a patient's medical
// record. PatientEmail, AdminID and AdminName are snapshots taken at
// creation; the timestamp fields are set exactly once by their transition.
type Request struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	MedicalRecordID    uuid.UUID  `json:"medical_record_id" db:"medical_record_id"`
	PatientIndexNo     string     `json:"patient_index_no" db:"patient_index_no"`
	PatientEmail       string     `json:"patient_email" db:"patient_email"`
	AdminID            string     `json:"admin_id" db:"admin_id"`
	AdminName          string     `json:"admin_name" db:"admin_name"`
	Reason             string     `json:"reason" db:"reason"`
	Status             Status     `json:"status" db:"status"`
	RequestedAt        time.Time  `json:"requested_at" db:"requested_at"`
	UserRespondedAt    *time.Time `json:"user_responded_at,omitempty" db:"user_responded_at"`
	PatientResponse    *string    `json:"patient_response,omitempty" db:"patient_response"`
	AdminConfirmedAt   *time.Time `json:"admin_confirmed_at,omitempty" db:"admin_confirmed_at"`
	AdminFinalResponse *string    `json:"admin_final_response,omitempty" db:"admin_final_response"`
	DismissedByPatient bool       `json:"dismissed_by_patient" db:"dismissed_by_patient"`
	DismissedAt        *time.Time `json:"dismissed_at,omitempty" db:"dismissed_at"`
}
