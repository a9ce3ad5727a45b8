package response

import (
	"time"

	"github.com/google/uuid"

	"chefslot/internal/domain/hold"
)

type HoldResponse struct {
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
}

func FromHold(h *hold.Hold) *HoldResponse {
	return &HoldResponse{
		ID:                   h.ID(),
		EventDate:            h.SlotKey().Date().Format(time.DateOnly),
		TimeSlot:             h.SlotKey().TimeSlot(),
		StationID:            h.SlotKey().StationID(),
		CustomerID:           h.CustomerID(),
		Phase:                h.Phase().String(),
		CreatedAt:            h.CreatedAt(),
		SignatureDeadline:    h.SignatureDeadline(),
		SignatureCompletedAt: h.SignatureCompletedAt(),
		PaymentDeadline:      h.PaymentDeadline(),
	}
}
