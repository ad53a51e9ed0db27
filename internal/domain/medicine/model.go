package medicine

import (
	"time"

	"github.com/google/uuid"
)

// Medicine is an inventory item in the hospital pharmacy.
type Medicine struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	BatchNo   string     `json:"batch_no" db:"batch_no"`
	Quantity  int        `json:"quantity" db:"quantity"`
	Unit      string     `json:"unit" db:"unit"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}
