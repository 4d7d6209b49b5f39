package analytics

import (
	"time"

	"github.com/google/uuid"
)

// HandoffSummary is a dashboard row: one handoff with the names a human
// needs, no custody internals.
type HandoffSummary struct {
	ID              uuid.UUID  `json:"id"`
	LotID           uuid.UUID  `json:"lot_id"`
	LotCode         string     `json:"lot_code"`
	DestinationID   uuid.UUID  `json:"destination_id"`
	DestinationName string     `json:"destination_name"`
	Quantity        *int       `json:"quantity,omitempty"`
	SentAt          time.Time  `json:"sent_at"`
	ReceivedAt      *time.Time `json:"received_at,omitempty"`
}

// relocateThreshold is the lot size above which an expiring lot is worth
// redistributing to another region instead of letting it run out.
const relocateThreshold = 100

// ExpiryAlert flags a held lot approaching its expiry date. Relocate marks
// large lots worth redistributing before they expire.
type ExpiryAlert struct {
	LotID          uuid.UUID `json:"lot_id"`
	LotCode        string    `json:"lot_code"`
	MedicationName string    `json:"medication_name"`
	ExpiryDate     time.Time `json:"expiry_date"`
	DaysRemaining  int       `json:"days_remaining"`
	Quantity       int       `json:"quantity"`
	Relocate       bool      `json:"relocate"`
}

// ManufacturerOverview summarizes a manufacturer's catalog and how far its
// lots have travelled down the chain.
type ManufacturerOverview struct {
	Medications          int     `json:"medications"`
	Lots                 int     `json:"lots"`
	ExpiredLots          int     `json:"expired_lots"`
	ExpiringSoonLots     int     `json:"expiring_soon_lots"`
	LookaheadDays        int     `json:"lookahead_days"`
	InTransitToAuthority int     `json:"in_transit_to_authority"`
	InTransitToUnit      int     `json:"in_transit_to_unit"`
	InTransitToPatient   int     `json:"in_transit_to_patient"`
	DeliveredToPatients  int     `json:"delivered_to_patients"`
	DeliveryRate         float64 `json:"delivery_rate"`
}

// DistributorLogistics summarizes a distributor's outbound shipments.
type DistributorLogistics struct {
	Pending          int              `json:"pending"`
	Completed        int              `json:"completed"`
	MeanDeliveryDays float64          `json:"mean_delivery_days"`
	RecentPending    []HandoffSummary `json:"recent_pending"`
}

// AuthorityManagement summarizes a regional authority's custody position.
// OnHand is confirmed inbound minus all outbound; Committed is the outbound
// share still in transit.
type AuthorityManagement struct {
	Received  int           `json:"received"`
	Forwarded int           `json:"forwarded"`
	Committed int           `json:"committed"`
	OnHand    int           `json:"on_hand"`
	Watchlist []ExpiryAlert `json:"watchlist"`
}

// UnitStock summarizes a local unit's stock and dispensing history.
type UnitStock struct {
	Received        int              `json:"received"`
	Dispensed       int              `json:"dispensed"`
	Committed       int              `json:"committed"`
	OnHand          int              `json:"on_hand"`
	RecentDispenses []HandoffSummary `json:"recent_dispenses"`
}
