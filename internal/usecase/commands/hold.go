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

// Notification job kinds written by the hold lifecycle. The delivery worker
// consumes them by kind.
const (
	jobSigningLink      = "signing_link"
	jobPaymentRequested = "payment_requested"
	jobBookingConfirmed = "booking_confirmed"
	jobHoldReleased     = "hold_released"
	jobHoldExpired      = "hold_expired"
)

type HoldCommands interface {
	CreateHold(ctx context.Context, key hold.SlotKey, customerID uuid.UUID) (*hold.Hold, error)
	RecordSignature(ctx context.Context, holdID uuid.UUID) (*hold.Hold, error)
	RecordPayment(ctx context.Context, holdID uuid.UUID, priceCents int64) (*booking.Booking, error)
	ReleaseHold(ctx context.Context, holdID uuid.UUID, reason string) error
}

type holdCommands struct {
	tx            shared.TxRunner
	holds         HoldRepository
	slotIndex     SlotIndexRepository
	writer        *BookingWriter
	notifications NotificationRepository
	clock         clock.Clock
	cfg           config.HoldConfig
}

func NewHoldCommands(
	tx shared.TxRunner,
	holds HoldRepository,
	slotIndex SlotIndexRepository,
	writer *BookingWriter,
	notifications NotificationRepository,
	clk clock.Clock,
	cfg config.HoldConfig,
) HoldCommands {
	return &holdCommands{
		tx:            tx,
		holds:         holds,
		slotIndex:     slotIndex,
		writer:        writer,
		notifications: notifications,
		clock:         clk,
		cfg:           cfg,
	}
}

// CreateHold claims a slot key. The slot index row lock serializes the
// check-then-act against concurrent claimers of the same key; the partial
// unique index on active holds backstops it.
func (u *holdCommands) CreateHold(ctx context.Context, key hold.SlotKey, customerID uuid.UUID) (*hold.Hold, error) {
	now := u.clock.Now()
	h, err := hold.NewHold(key, customerID, now, u.cfg.SignatureDeadline)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrInvalidSlotKey)
	}

	err = u.tx.InTxWithRetry(ctx, func(tx db.DBTX) error {
		entry, err := u.slotIndex.LockForKey(ctx, tx, key)
		if err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		switch entry.State {
		case repository.SlotFree:
		case repository.SlotHeld:
			// A held key may be occupied by a hold whose deadline has
			// already passed but the sweeper has not caught up with.
			// Expired holds do not count as active; evict inline.
			if err := u.evictIfExpired(ctx, tx, key, now); err != nil {
				return err
			}
		default:
			return errs.Mark(errs.New("slot is "+string(entry.State)), errs.ErrSlotUnavailable)
		}

		if err := u.holds.Create(ctx, tx, h); err != nil {
			if infra.IsKind(err, infra.KindDuplicateKey) {
				// We hold the index row lock, so the unique index firing means
				// the index and the holds table disagree. Anomalous.
				slog.Error("CRITICAL: active-hold unique index fired behind the slot lock",
					"slot_key", key.String(), "hold_id", h.ID(), "error", err)
				return errs.Mark(err, errs.ErrConstraintViolation)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		holdID := h.ID()
		if err := u.slotIndex.SetState(ctx, tx, key, repository.SlotHeld, &holdID); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		u.enqueue(ctx, tx, jobSigningLink, h.CustomerID(), map[string]any{
			"hold_id":            h.ID(),
			"slot_key":           key.String(),
			"signature_deadline": h.SignatureDeadline(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// RecordSignature advances the hold past the signature step. Optimistic:
// reload and reapply on version races, bounded by MaxWriteRetries.
func (u *holdCommands) RecordSignature(ctx context.Context, holdID uuid.UUID) (*hold.Hold, error) {
	for attempt := 0; ; attempt++ {
		h, err := u.loadHold(ctx, holdID)
		if err != nil {
			return nil, err
		}

		if err := h.RecordSignature(u.clock.Now(), u.cfg.PaymentDeadline); err != nil {
			return nil, mapHoldErr(h, err)
		}

		err = u.tx.InTx(ctx, func(tx db.DBTX) error {
			if err := u.holds.Update(ctx, tx, h, h.Version()); err != nil {
				return err
			}
			u.enqueue(ctx, tx, jobPaymentRequested, h.CustomerID(), map[string]any{
				"hold_id":          h.ID(),
				"slot_key":         h.SlotKey().String(),
				"payment_deadline": h.PaymentDeadline(),
			})
			return nil
		})
		if err == nil {
			return h, nil
		}
		if u.shouldRetryStale(err, attempt, holdID) {
			continue
		}
		return nil, wrapWriteErr(err)
	}
}

// RecordPayment confirms the hold and converts it into a booking in the same
// transaction, so a crash can never leave a confirmed hold without a booking.
func (u *holdCommands) RecordPayment(ctx context.Context, holdID uuid.UUID, priceCents int64) (*booking.Booking, error) {
	for attempt := 0; ; attempt++ {
		h, err := u.loadHold(ctx, holdID)
		if err != nil {
			return nil, err
		}

		now := u.clock.Now()
		if err := h.RecordPayment(now); err != nil {
			return nil, mapHoldErr(h, err)
		}

		var b *booking.Booking
		err = u.tx.InTx(ctx, func(tx db.DBTX) error {
			if err := u.holds.Update(ctx, tx, h, h.Version()); err != nil {
				return err
			}
			b, err = u.writer.Confirm(ctx, tx, h, priceCents, now)
			if err != nil {
				return err
			}
			u.enqueue(ctx, tx, jobBookingConfirmed, h.CustomerID(), map[string]any{
				"hold_id":    h.ID(),
				"booking_id": b.ID(),
				"slot_key":   h.SlotKey().String(),
			})
			return nil
		})
		if err == nil {
			return b, nil
		}
		if u.shouldRetryStale(err, attempt, holdID) {
			continue
		}
		if errors.Is(err, errs.ErrSlotUnavailable) || errors.Is(err, errs.ErrConstraintViolation) {
			return nil, err
		}
		return nil, wrapWriteErr(err)
	}
}

// ReleaseHold voluntarily abandons a hold and frees its slot. Idempotent:
// releasing a hold that is already released succeeds without a write.
func (u *holdCommands) ReleaseHold(ctx context.Context, holdID uuid.UUID, reason string) error {
	for attempt := 0; ; attempt++ {
		h, err := u.loadHold(ctx, holdID)
		if err != nil {
			return err
		}

		alreadyReleased := h.Phase() == hold.PhaseReleased
		if err := h.Release(reason); err != nil {
			return mapHoldErr(h, err)
		}
		if alreadyReleased {
			return nil
		}

		err = u.tx.InTx(ctx, func(tx db.DBTX) error {
			if err := u.holds.Update(ctx, tx, h, h.Version()); err != nil {
				return err
			}
			if _, err := u.slotIndex.LockForKey(ctx, tx, h.SlotKey()); err != nil {
				return err
			}
			if err := u.slotIndex.SetState(ctx, tx, h.SlotKey(), repository.SlotFree, nil); err != nil {
				return err
			}
			u.enqueue(ctx, tx, jobHoldReleased, h.CustomerID(), map[string]any{
				"hold_id":  h.ID(),
				"slot_key": h.SlotKey().String(),
				"reason":   reason,
			})
			return nil
		})
		if err == nil {
			return nil
		}
		if u.shouldRetryStale(err, attempt, holdID) {
			continue
		}
		return wrapWriteErr(err)
	}
}

// evictIfExpired frees a held key whose occupying hold is past its deadline,
// persisting the same expiry the sweeper would. Runs under the index row
// lock. A hold still within its deadline keeps the key.
func (u *holdCommands) evictIfExpired(ctx context.Context, tx db.DBTX, key hold.SlotKey, now time.Time) error {
	occupying, err := u.holds.FindActiveBySlotKey(ctx, tx, key)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			// The index says held but no active hold backs it; take the key.
			return nil
		}
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	switch occupying.EffectivePhase(now) {
	case hold.PhaseExpiredUnsigned:
		err = occupying.ExpireUnsigned(now)
	case hold.PhaseExpiredUnpaid:
		err = occupying.ExpireUnpaid(now)
	default:
		return errs.Mark(errs.New("slot is held"), errs.ErrSlotUnavailable)
	}
	if err != nil {
		return errs.Mark(err, errs.ErrSlotUnavailable)
	}

	if err := u.holds.Update(ctx, tx, occupying, occupying.Version()); err != nil {
		if infra.IsKind(err, infra.KindStaleVersion) {
			// The sweeper or the occupant raced us; the key's state is in
			// flux, so the claimer gets the unavailable answer and retries.
			return errs.Mark(err, errs.ErrSlotUnavailable)
		}
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	u.enqueue(ctx, tx, jobHoldExpired, occupying.CustomerID(), map[string]any{
		"hold_id":  occupying.ID(),
		"slot_key": key.String(),
		"phase":    occupying.Phase().String(),
	})
	return nil
}

func (u *holdCommands) loadHold(ctx context.Context, holdID uuid.UUID) (*hold.Hold, error) {
	h, err := u.holds.FindByID(ctx, u.tx.ReadDB(), holdID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, errs.ErrHoldNotFound)
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return h, nil
}

func (u *holdCommands) shouldRetryStale(err error, attempt int, holdID uuid.UUID) bool {
	if !infra.IsKind(err, infra.KindStaleVersion) {
		return false
	}
	if attempt >= u.cfg.MaxWriteRetries {
		return false
	}
	slog.Warn("hold version raced, reloading",
		"hold_id", holdID, "attempt", attempt+1)
	return true
}

// enqueue writes a notification job inside the caller's transaction.
// Best effort: a failed enqueue is logged and never rolls back the hold
// transition it accompanies.
func (u *holdCommands) enqueue(ctx context.Context, tx db.DBTX, kind string, customerID uuid.UUID, payload map[string]any) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("failed to marshal notification payload", "kind", kind, "error", err)
		return
	}
	if err := u.notifications.CreateJob(ctx, tx, kind, customerID.String(), body, u.clock.Now()); err != nil {
		slog.Warn("failed to enqueue notification job", "kind", kind, "error", err)
	}
}

// mapHoldErr translates domain transition errors into the usecase taxonomy.
// A transition refused because the hold already expired reports ErrHoldExpired
// whether the expiry was detected at call time or applied by the sweeper.
func mapHoldErr(h *hold.Hold, err error) error {
	switch {
	case errors.Is(err, hold.ErrHoldExpired):
		return errs.Mark(err, errs.ErrHoldExpired)
	case errors.Is(err, hold.ErrInvalidPhase), errors.Is(err, hold.ErrAlreadyTerminal):
		if h.Phase() == hold.PhaseExpiredUnsigned || h.Phase() == hold.PhaseExpiredUnpaid {
			return errs.Mark(err, errs.ErrHoldExpired)
		}
		return errs.Mark(err, errs.ErrInvalidPhase)
	default:
		return errs.Mark(err, errs.ErrInvalidPhase)
	}
}

func wrapWriteErr(err error) error {
	if infra.IsKind(err, infra.KindStaleVersion) {
		return errs.Mark(err, errs.ErrStaleVersion)
	}
	return errs.Mark(err, errs.ErrDatabaseOperationFailed)
}
