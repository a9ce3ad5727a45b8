package commands

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"chefslot/internal/domain/booking"
	"chefslot/internal/domain/hold"
	"chefslot/internal/infra"
	"chefslot/internal/infra/db"
	"chefslot/internal/infra/repository"
	"chefslot/internal/pkg/clock"
	"chefslot/internal/pkg/config"
	"chefslot/internal/pkg/errs"
	"chefslot/internal/usecase/shared"
)

const jobBookingCancelled = "booking_cancelled"

// BookingWriter is the only code path that creates bookings. It runs inside
// the payment transaction and re-checks the slot under the index row lock
// before writing, so a booking can never land on an occupied key.
type BookingWriter struct {
	bookings  BookingRepository
	slotIndex SlotIndexRepository
}

func NewBookingWriter(bookings BookingRepository, slotIndex SlotIndexRepository) *BookingWriter {
	return &BookingWriter{bookings: bookings, slotIndex: slotIndex}
}

func (w *BookingWriter) Confirm(ctx context.Context, tx db.DBTX, h *hold.Hold, priceCents int64, now time.Time) (*booking.Booking, error) {
	entry, err := w.slotIndex.LockForKey(ctx, tx, h.SlotKey())
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if entry.State == repository.SlotBooked {
		return nil, errs.Mark(errs.New("slot already booked"), errs.ErrSlotUnavailable)
	}

	if _, err := w.bookings.FindActiveBySlotKey(ctx, tx, h.SlotKey()); err == nil {
		// Index says held, bookings table says booked. The tables disagree;
		// refuse rather than double-book.
		slog.Error("CRITICAL: active booking found for a slot the index reports as held",
			"slot_key", h.SlotKey().String(), "hold_id", h.ID())
		return nil, errs.Mark(errs.New("active booking exists for slot"), errs.ErrSlotUnavailable)
	} else if !infra.IsKind(err, infra.KindNotFound) {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	b, err := booking.FromConfirmedHold(h, priceCents, now)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrInvalidPhase)
	}

	if err := w.bookings.Create(ctx, tx, b); err != nil {
		if infra.IsKind(err, infra.KindDuplicateKey) {
			slog.Error("CRITICAL: active-booking unique index fired behind the slot lock",
				"slot_key", h.SlotKey().String(), "booking_id", b.ID(), "error", err)
			return nil, errs.Mark(err, errs.ErrConstraintViolation)
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	bookingID := b.ID()
	if err := w.slotIndex.SetState(ctx, tx, h.SlotKey(), repository.SlotBooked, &bookingID); err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return b, nil
}

type BookingCommands interface {
	Cancel(ctx context.Context, bookingID uuid.UUID, reason string) (*booking.Booking, error)
	Complete(ctx context.Context, bookingID uuid.UUID) (*booking.Booking, error)
	MarkNoShow(ctx context.Context, bookingID uuid.UUID) (*booking.Booking, error)
}

type bookingCommands struct {
	tx            shared.TxRunner
	bookings      BookingRepository
	slotIndex     SlotIndexRepository
	notifications NotificationRepository
	clock         clock.Clock
	cfg           config.HoldConfig
}

func NewBookingCommands(
	tx shared.TxRunner,
	bookings BookingRepository,
	slotIndex SlotIndexRepository,
	notifications NotificationRepository,
	clk clock.Clock,
	cfg config.HoldConfig,
) BookingCommands {
	return &bookingCommands{
		tx:            tx,
		bookings:      bookings,
		slotIndex:     slotIndex,
		notifications: notifications,
		clock:         clk,
		cfg:           cfg,
	}
}

// Cancel closes the booking and frees its slot for rebooking.
func (u *bookingCommands) Cancel(ctx context.Context, bookingID uuid.UUID, reason string) (*booking.Booking, error) {
	return u.transition(ctx, bookingID, func(b *booking.Booking) error {
		return b.Cancel()
	}, func(ctx context.Context, tx db.DBTX, b *booking.Booking) error {
		if _, err := u.slotIndex.LockForKey(ctx, tx, b.SlotKey()); err != nil {
			return err
		}
		if err := u.slotIndex.SetState(ctx, tx, b.SlotKey(), repository.SlotFree, nil); err != nil {
			return err
		}
		u.notify(ctx, tx, b, reason)
		return nil
	})
}

// Complete and MarkNoShow close the booking but leave the index entry booked:
// the slot is in the past and no longer contended.
func (u *bookingCommands) Complete(ctx context.Context, bookingID uuid.UUID) (*booking.Booking, error) {
	return u.transition(ctx, bookingID, func(b *booking.Booking) error {
		return b.Complete()
	}, nil)
}

func (u *bookingCommands) MarkNoShow(ctx context.Context, bookingID uuid.UUID) (*booking.Booking, error) {
	return u.transition(ctx, bookingID, func(b *booking.Booking) error {
		return b.MarkNoShow()
	}, nil)
}

func (u *bookingCommands) transition(
	ctx context.Context,
	bookingID uuid.UUID,
	apply func(*booking.Booking) error,
	after func(context.Context, db.DBTX, *booking.Booking) error,
) (*booking.Booking, error) {
	for attempt := 0; ; attempt++ {
		b, err := u.loadBooking(ctx, bookingID)
		if err != nil {
			return nil, err
		}

		if err := apply(b); err != nil {
			if errors.Is(err, booking.ErrNotActive) {
				return nil, errs.Mark(err, errs.ErrBookingClosed)
			}
			return nil, err
		}

		err = u.tx.InTx(ctx, func(tx db.DBTX) error {
			if err := u.bookings.Update(ctx, tx, b, b.Version()); err != nil {
				return err
			}
			if after != nil {
				return after(ctx, tx, b)
			}
			return nil
		})
		if err == nil {
			return b, nil
		}
		if infra.IsKind(err, infra.KindStaleVersion) && attempt < u.cfg.MaxWriteRetries {
			slog.Warn("booking version raced, reloading",
				"booking_id", bookingID, "attempt", attempt+1)
			continue
		}
		return nil, wrapWriteErr(err)
	}
}

func (u *bookingCommands) loadBooking(ctx context.Context, bookingID uuid.UUID) (*booking.Booking, error) {
	b, err := u.bookings.FindByID(ctx, u.tx.ReadDB(), bookingID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, errs.ErrBookingNotFound)
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return b, nil
}

func (u *bookingCommands) notify(ctx context.Context, tx db.DBTX, b *booking.Booking, reason string) {
	payload, err := json.Marshal(map[string]any{
		"booking_id": b.ID(),
		"slot_key":   b.SlotKey().String(),
		"reason":     reason,
	})
	if err != nil {
		slog.Warn("failed to marshal notification payload", "kind", jobBookingCancelled, "error", err)
		return
	}
	if err := u.notifications.CreateJob(ctx, tx, jobBookingCancelled, b.CustomerID().String(), payload, u.clock.Now()); err != nil {
		slog.Warn("failed to enqueue notification job", "kind", jobBookingCancelled, "error", err)
	}
}
