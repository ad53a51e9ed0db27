package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient is a registered patient. IndexNo is the human-facing identifier
// used by staff and printed on paperwork; it is unique across patients.
type Patient struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	IndexNo    string     `json:"index_no" db:"index_no"`
	Name       string     `json:"name" db:"name"`
	Email      string     `json:"email" db:"email"`
	Phone      *string    `json:"phone,omitempty" db:"phone"`
	Ward       *string    `json:"ward,omitempty" db:"ward"`
	AdmittedAt *time.Time `json:"admitted_at,omitempty" db:"admitted_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// MedicalRecord is a single clinical entry for a patient, keyed by the
// patient's index number rather than the internal UUID so records survive
// re-registration.
type MedicalRecord struct {
	ID             uuid.UUID `json:"id" db:"id"`
	PatientIndexNo string    `json:"patient_index_no" db:"patient_index_no"`
	Diagnosis      string    `json:"diagnosis" db:"diagnosis"`
	Treatment      *string   `json:"treatment,omitempty" db:"treatment"`
	Notes          *string   `json:"notes,omitempty" db:"notes"`
	RecordedBy     *string   `json:"recorded_by,omitempty" db:"recorded_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
