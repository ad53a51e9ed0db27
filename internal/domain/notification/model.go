package notification

import (
	"time"

	"github.com/google/uuid"
)

// Recipient and category constants. A recipient is either the shared admin
// inbox or a patient index number.
const (
	RecipientAdmin = "admin"

	CategoryAdmin   = "admin"
	CategoryPatient = "patient"
)

// Notification is an in-app inbox entry. The (recipient, type, source_id)
// triple identifies the underlying event so repeated emissions collapse into
// a single entry.
type Notification struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Recipient string    `json:"recipient" db:"recipient"`
	Category  string    `json:"category" db:"category"`
	Type      string    `json:"type" db:"type"`
	SourceID  string    `json:"source_id" db:"source_id"`
	Message   string    `json:"message" db:"message"`
	Read      bool      `json:"read" db:"read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
