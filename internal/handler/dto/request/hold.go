package request

import (
	"time"

	"github.com/google/uuid"

	"chefslot/internal/domain/hold"
)

type CreateHoldRequest struct {
	EventDate string    `json:"event_date" binding:"required"`
	TimeSlot  string    `json:"time_slot" binding:"required"`
	StationID uuid.UUID `json:"station_id" binding:"required"`
}

// ToSlotKey revalidates through the domain constructor; binding tags only
// catch missing fields.
func (r *CreateHoldRequest) ToSlotKey() (hold.SlotKey, error) {
	date, err := time.Parse(time.DateOnly, r.EventDate)
	if err != nil {
		return hold.SlotKey{}, hold.ErrInvalidDate
	}
	return hold.NewSlotKey(date, r.TimeSlot, r.StationID)
}

type RecordPaymentRequest struct {
	PriceCents int64 `json:"price_cents" binding:"required,gt=0"`
}
