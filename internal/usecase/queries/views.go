package queries

import (
	"time"

	"github.com/google/uuid"
)

// Read-side views. Flattened snapshots of the write model, shaped for the
// handler layer; never fed back into commands.

type HoldView struct {
	ID                   uuid.UUID  `json:"id"`
	EventDate            string     `json:"event_date"`
	TimeSlot             string     `json:"time_slot"`
	StationID            uuid.UUID  `json:"station_id"`
	CustomerID           uuid.UUID  `json:"customer_id"`
	Phase                string     `json:"phase"`
	CreatedAt            time.Time  `json:"created_at"`
	SignatureDeadline    time.Time  `json:"signature_deadline"`
	SignatureCompletedAt *time.Time `json:"signature_completed_at,omitempty"`
	PaymentDeadline      *time.Time `json:"payment_deadline,omitempty"`
	ReleaseReason        string     `json:"release_reason,omitempty"`
}

type BookingView struct {
	ID               uuid.UUID  `json:"id"`
	HoldID           uuid.UUID  `json:"hold_id"`
	EventDate        string     `json:"event_date"`
	TimeSlot         string     `json:"time_slot"`
	StationID        uuid.UUID  `json:"station_id"`
	CustomerID       uuid.UUID  `json:"customer_id"`
	Status           string     `json:"status"`
	PriceCents       int64      `json:"price_cents"`
	AssignedWorkerID *uuid.UUID `json:"assigned_worker_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type SlotStatusView struct {
	TimeSlot string `json:"time_slot"`
	State    string `json:"state"`
}

type AvailabilityView struct {
	StationID uuid.UUID        `json:"station_id"`
	EventDate string           `json:"event_date"`
	Slots     []SlotStatusView `json:"slots"`
}
