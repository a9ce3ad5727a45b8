package queries

import (
	"context"

	"github.com/google/uuid"

	"chefslot/internal/domain/booking"
	"chefslot/internal/infra"
	"chefslot/internal/infra/db"
	"chefslot/internal/pkg/errs"
)

type BookingReadStore interface {
	FindByID(ctx context.Context, q db.DBTX, id uuid.UUID) (*booking.Booking, error)
}

type BookingQueries interface {
	GetByID(ctx context.Context, id uuid.UUID) (*BookingView, error)
}

type bookingQueries struct {
	db       db.DBTX
	bookings BookingReadStore
}

func NewBookingQueries(dbtx db.DBTX, bookings BookingReadStore) BookingQueries {
	return &bookingQueries{db: dbtx, bookings: bookings}
}

func (q *bookingQueries) GetByID(ctx context.Context, id uuid.UUID) (*BookingView, error) {
	b, err := q.bookings.FindByID(ctx, q.db, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, errs.ErrBookingNotFound)
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return bookingToView(b), nil
}

func bookingToView(b *booking.Booking) *BookingView {
	return &BookingView{
		ID:               b.ID(),
		HoldID:           b.HoldID(),
		EventDate:        b.SlotKey().Date().Format("2006-01-02"),
		TimeSlot:         b.SlotKey().TimeSlot(),
		StationID:        b.SlotKey().StationID(),
		CustomerID:       b.CustomerID(),
		Status:           string(b.Status()),
		PriceCents:       b.PriceCents(),
		AssignedWorkerID: b.AssignedWorkerID(),
		CreatedAt:        b.CreatedAt(),
	}
}
