package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Medication is a product in a manufacturer's catalog. Price and the
// high-cost flag are descriptive attributes used by dashboards; they carry
// no state.
type Medication struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Dosage         string    `json:"dosage"`
	Route          string    `json:"route"`
	ManufacturerID uuid.UUID `json:"manufacturer_id"`
	Price          float64   `json:"price"`
	HighCost       bool      `json:"high_cost"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Lot is an immutable manufactured batch. InitialQuantity is set once;
// consumption is tracked through handoff history, never by decrementing
// this field.
type Lot struct {
	ID              uuid.UUID `json:"id"`
	MedicationID    uuid.UUID `json:"medication_id"`
	Code            string    `json:"code"`
	ManufactureDate time.Time `json:"manufacture_date"`
	ExpiryDate      time.Time `json:"expiry_date"`
	InitialQuantity int       `json:"initial_quantity"`
	CreatedAt       time.Time `json:"created_at"`
}

// Expired reports whether the lot's expiry date has passed.
func (l *Lot) Expired(now time.Time) bool {
	return now.After(l.ExpiryDate)
}

// NearExpiry reports whether the lot expires within the lookahead window.
// An already expired lot is not "near" expiry.
func (l *Lot) NearExpiry(now time.Time, lookaheadDays int) bool {
	if l.Expired(now) {
		return false
	}
	return !l.ExpiryDate.After(now.AddDate(0, 0, lookaheadDays))
}

// DaysToExpiry returns the whole days remaining until expiry, negative when
// already expired.
func (l *Lot) DaysToExpiry(now time.Time) int {
	return int(l.ExpiryDate.Sub(now).Hours() / 24)
}
