package response

import (
	"time"

	"github.com/google/uuid"

	"chefslot/internal/domain/assignment"
	"chefslot/internal/domain/booking"
)

type BookingResponse struct {
	ID               uuid.UUID  `json:"id"`
	HoldID           uuid.UUID  `json:"hold_id"`
	EventDate        string     `json:"event_date"`
	TimeSlot         string     `json:"time_slot"`
	StationID        uuid.UUID  `json:"station_id"`
	CustomerID       uuid.UUID  `json:"customer_id"`
	Status           string     `json:"status"`
	PriceCents       int64      `json:"price_cents"`
	AssignedWorkerID *uuid.UUID `json:"assigned_worker_id,omitempty"`
}

func FromBooking(b *booking.Booking) *BookingResponse {
	return &BookingResponse{
		ID:               b.ID(),
		HoldID:           b.HoldID(),
		EventDate:        b.SlotKey().Date().Format(time.DateOnly),
		TimeSlot:         b.SlotKey().TimeSlot(),
		StationID:        b.SlotKey().StationID(),
		CustomerID:       b.CustomerID(),
		Status:           string(b.Status()),
		PriceCents:       b.PriceCents(),
		AssignedWorkerID: b.AssignedWorkerID(),
	}
}

type AssignmentResponse struct {
	BookingID        uuid.UUID `json:"booking_id"`
	WorkerID         uuid.UUID `json:"worker_id"`
	TravelScore      float64   `json:"travel_score"`
	TierScore        float64   `json:"tier_score"`
	PerformanceScore float64   `json:"performance_score"`
	TotalScore       float64   `json:"total_score"`
	AssignedAt       time.Time `json:"assigned_at"`
}

func FromAssignment(a assignment.Assignment) *AssignmentResponse {
	return &AssignmentResponse{
		BookingID:        a.BookingID,
		WorkerID:         a.WorkerID,
		TravelScore:      a.TravelScore,
		TierScore:        a.TierScore,
		PerformanceScore: a.PerformanceScore,
		TotalScore:       a.TotalScore,
		AssignedAt:       a.AssignedAt,
	}
}
