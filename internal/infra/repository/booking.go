package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"chefslot/internal/domain/booking"
	"chefslot/internal/domain/hold"
	"chefslot/internal/infra"
	"chefslot/internal/infra/db"
	"chefslot/internal/pkg/pgconv"
)

type BookingRepository struct{}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{}
}

const bookingColumns = `id, hold_id, event_date, time_slot, station_id, customer_id,
	status, price_cents, assigned_worker_id, version, created_at, updated_at`

func scanBooking(row pgx.Row) (*booking.Booking, error) {
	var (
		id, holdID, stationID, customerID uuid.UUID
		eventDate, createdAt, updatedAt   time.Time
		timeSlot, status                  string
		priceCents                        int64
		assignedWorkerID                  *uuid.UUID
		version                           int64
	)

	err := row.Scan(
		&id, &holdID, &eventDate, &timeSlot, &stationID, &customerID,
		&status, &priceCents, &assignedWorkerID, &version, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	key := hold.ReconstructSlotKey(eventDate, timeSlot, stationID)
	return booking.ReconstructBooking(
		id, holdID, key, customerID, booking.Status(status),
		priceCents, assignedWorkerID, version, createdAt, updatedAt,
	), nil
}

// Create inserts the booking. The partial unique index over active status
// is Layer 1 of the double-booking defense; a 23505 here means Layers 2
// and 3 were bypassed and is reported as DUPLICATE_KEY for the writer to
// escalate.
func (r *BookingRepository) Create(ctx context.Context, tx db.DBTX, b *booking.Booking) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO bookings (
			id, hold_id, event_date, time_slot, station_id, customer_id,
			status, price_cents, assigned_worker_id, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		b.ID(), b.HoldID(), b.SlotKey().Date(), b.SlotKey().TimeSlot(), b.SlotKey().StationID(),
		b.CustomerID(), b.Status().String(), b.PriceCents(),
		pgconv.UUIDPtrToPgtype(b.AssignedWorkerID()), b.Version(), b.CreatedAt(), b.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return infra.WrapRepoErr("active booking already exists for slot key", err, infra.KindDuplicateKey)
		}
		return infra.WrapRepoErr("failed to create booking", err)
	}
	return nil
}

func (r *BookingRepository) FindByID(ctx context.Context, q db.DBTX, id uuid.UUID) (*booking.Booking, error) {
	row := q.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)

	b, err := scanBooking(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("booking not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find booking", err)
	}
	return b, nil
}

// FindActiveBySlotKey is the Layer 3 re-check after the index row lock.
func (r *BookingRepository) FindActiveBySlotKey(ctx context.Context, q db.DBTX, key hold.SlotKey) (*booking.Booking, error) {
	row := q.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE event_date = $1 AND time_slot = $2 AND station_id = $3 AND status = 'active'
	`, key.Date(), key.TimeSlot(), key.StationID())

	b, err := scanBooking(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("no active booking for slot key", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find active booking", err)
	}
	return b, nil
}

// Update carries the optimistic version check for booking mutations
// (status changes and worker assignment).
func (r *BookingRepository) Update(ctx context.Context, tx db.DBTX, b *booking.Booking, expectedVersion int64) error {
	tag, err := tx.Exec(ctx, `
		UPDATE bookings SET
			status = $2,
			assigned_worker_id = $3,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $4
	`, b.ID(), b.Status().String(), pgconv.UUIDPtrToPgtype(b.AssignedWorkerID()), expectedVersion)
	if err != nil {
		return infra.WrapRepoErr("failed to update booking", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("booking version mismatch", nil, infra.KindStaleVersion)
	}
	return nil
}
