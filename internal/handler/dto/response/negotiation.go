package response

import (
	"time"

	"github.com/google/uuid"

	"chefslot/internal/domain/negotiation"
)

type OfferResponse struct {
	ID            uuid.UUID `json:"id"`
	RequestedSlot string    `json:"requested_slot"`
	EventDate     string    `json:"event_date"`
	TimeSlot      string    `json:"time_slot"`
	StationID     uuid.UUID `json:"station_id"`
	Rank          int       `json:"rank"`
	Response      string    `json:"response"`
	ExpiresAt     time.Time `json:"expires_at"`
}

func FromOffer(o *negotiation.Offer) *OfferResponse {
	return &OfferResponse{
		ID:            o.ID(),
		RequestedSlot: o.RequestedKey().String(),
		EventDate:     o.ProposedKey().Date().Format(time.DateOnly),
		TimeSlot:      o.ProposedKey().TimeSlot(),
		StationID:     o.ProposedKey().StationID(),
		Rank:          o.Rank(),
		Response:      string(o.Response()),
		ExpiresAt:     o.ExpiresAt(),
	}
}

func FromOffers(offers []*negotiation.Offer) []*OfferResponse {
	out := make([]*OfferResponse, len(offers))
	for i, o := range offers {
		out[i] = FromOffer(o)
	}
	return out
}

type RespondResult struct {
	Offer *OfferResponse `json:"offer"`
	Hold  *HoldResponse  `json:"hold,omitempty"`
}
