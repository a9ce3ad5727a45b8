package commands

import (
	"context"
	"time"

	"github.com/google/uuid"

	"chefslot/internal/domain/assignment"
	"chefslot/internal/domain/booking"
	"chefslot/internal/domain/hold"
	"chefslot/internal/domain/negotiation"
	"chefslot/internal/infra/db"
	"chefslot/internal/infra/repository"
)

// Write-side ports. Implementations live in internal/infra/repository; the
// db.DBTX parameter lets one instance serve both pooled and transactional
// callers.

type HoldRepository interface {
	Create(ctx context.Context, tx db.DBTX, h *hold.Hold) error
	FindByID(ctx context.Context, q db.DBTX, id uuid.UUID) (*hold.Hold, error)
	FindActiveBySlotKey(ctx context.Context, q db.DBTX, key hold.SlotKey) (*hold.Hold, error)
	Update(ctx context.Context, tx db.DBTX, h *hold.Hold, expectedVersion int64) error
}

type SlotIndexRepository interface {
	LockForKey(ctx context.Context, tx db.DBTX, key hold.SlotKey) (*repository.SlotIndexEntry, error)
	SetState(ctx context.Context, tx db.DBTX, key hold.SlotKey, state repository.SlotState, refID *uuid.UUID) error
	FindOccupied(ctx context.Context, q db.DBTX, stationIDs []uuid.UUID, from, to time.Time) ([]hold.SlotKey, error)
}

type BookingRepository interface {
	Create(ctx context.Context, tx db.DBTX, b *booking.Booking) error
	FindByID(ctx context.Context, q db.DBTX, id uuid.UUID) (*booking.Booking, error)
	FindActiveBySlotKey(ctx context.Context, q db.DBTX, key hold.SlotKey) (*booking.Booking, error)
	Update(ctx context.Context, tx db.DBTX, b *booking.Booking, expectedVersion int64) error
}

type OfferRepository interface {
	CreateBatch(ctx context.Context, tx db.DBTX, offers []*negotiation.Offer) error
	FindByID(ctx context.Context, q db.DBTX, id uuid.UUID) (*negotiation.Offer, error)
	CloseOffer(ctx context.Context, tx db.DBTX, o *negotiation.Offer) error
}

type WorkerDirectory interface {
	ListAvailable(ctx context.Context, q db.DBTX, key hold.SlotKey) ([]assignment.Candidate, error)
}

type AssignmentRepository interface {
	Upsert(ctx context.Context, tx db.DBTX, a assignment.Assignment, hours float64) error
}

type StationRepository interface {
	FindRoutes(ctx context.Context, q db.DBTX, originID uuid.UUID) ([]repository.StationRoute, error)
}

type NotificationRepository interface {
	CreateJob(ctx context.Context, tx db.DBTX, kind, topic string, payload []byte, runAt time.Time) error
}
