package booking

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"chefslot/internal/domain/hold"
)

var (
	ErrNotActive        = errors.New("booking is not active")
	ErrHoldNotConfirmed = errors.New("hold must be confirmed to convert")
)

// Booking is the durable confirmed reservation. It is created exclusively
// from a confirmed hold by the booking writer, never from client input.
type Booking struct {
	id               uuid.UUID
	holdID           uuid.UUID
	slotKey          hold.SlotKey
	customerID       uuid.UUID
	status           Status
	priceCents       int64
	assignedWorkerID *uuid.UUID
	version          int64
	createdAt        time.Time
	updatedAt        time.Time
}

// FromConfirmedHold converts a hold whose payment has completed. The price
// is opaque to the core and carried through from the payment callback.
func FromConfirmedHold(h *hold.Hold, priceCents int64, now time.Time) (*Booking, error) {
	if h.Phase() != hold.PhaseConfirmed {
		return nil, ErrHoldNotConfirmed
	}

	return &Booking{
		id:         uuid.New(),
		holdID:     h.ID(),
		slotKey:    h.SlotKey(),
		customerID: h.CustomerID(),
		status:     StatusActive,
		priceCents: priceCents,
		version:    1,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

func ReconstructBooking(
	id, holdID uuid.UUID,
	key hold.SlotKey,
	customerID uuid.UUID,
	status Status,
	priceCents int64,
	assignedWorkerID *uuid.UUID,
	version int64,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		id:               id,
		holdID:           holdID,
		slotKey:          key,
		customerID:       customerID,
		status:           status,
		priceCents:       priceCents,
		assignedWorkerID: assignedWorkerID,
		version:          version,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

func (b *Booking) Cancel() error   { return b.close(StatusCancelled) }
func (b *Booking) Complete() error { return b.close(StatusCompleted) }
func (b *Booking) MarkNoShow() error {
	return b.close(StatusNoShow)
}

func (b *Booking) close(to Status) error {
	if b.status != StatusActive {
		return ErrNotActive
	}
	b.status = to
	return nil
}

func (b *Booking) AssignWorker(workerID uuid.UUID) error {
	if b.status != StatusActive {
		return ErrNotActive
	}
	id := workerID
	b.assignedWorkerID = &id
	return nil
}

func (b *Booking) IsActive() bool {
	return b.status == StatusActive
}

func (b *Booking) ID() uuid.UUID                { return b.id }
func (b *Booking) HoldID() uuid.UUID            { return b.holdID }
func (b *Booking) SlotKey() hold.SlotKey        { return b.slotKey }
func (b *Booking) CustomerID() uuid.UUID        { return b.customerID }
func (b *Booking) Status() Status               { return b.status }
func (b *Booking) PriceCents() int64            { return b.priceCents }
func (b *Booking) AssignedWorkerID() *uuid.UUID { return b.assignedWorkerID }
func (b *Booking) Version() int64               { return b.version }
func (b *Booking) CreatedAt() time.Time         { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time         { return b.updatedAt }
