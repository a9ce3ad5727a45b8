package request

import (
	"time"

	"github.com/google/uuid"

	"chefslot/internal/domain/hold"
)

type ProposeAlternativesRequest struct {
	EventDate string    `json:"event_date" binding:"required"`
	TimeSlot  string    `json:"time_slot" binding:"required"`
	StationID uuid.UUID `json:"station_id" binding:"required"`
}

func (r *ProposeAlternativesRequest) ToSlotKey() (hold.SlotKey, error) {
	date, err := time.Parse(time.DateOnly, r.EventDate)
	if err != nil {
		return hold.SlotKey{}, hold.ErrInvalidDate
	}
	return hold.NewSlotKey(date, r.TimeSlot, r.StationID)
}

type OfferResponseRequest struct {
	Action string `json:"action" binding:"required,oneof=accept reject"`
}
