package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"chefslot/internal/domain/hold"
	"chefslot/internal/infra"
	"chefslot/internal/infra/db"
	"chefslot/internal/infra/repository"
	"chefslot/internal/pkg/clock"
	"chefslot/internal/pkg/config"
	"chefslot/internal/usecase/shared"
)

const (
	jobSignatureWarning = "signature_deadline_warning"
	jobPaymentWarning   = "payment_deadline_warning"
	jobHoldExpired      = "hold_expired"
)

type HoldSweepRepository interface {
	FindSignatureWarnDue(ctx context.Context, q db.DBTX, now time.Time, window time.Duration) ([]*hold.Hold, error)
	FindPaymentWarnDue(ctx context.Context, q db.DBTX, now time.Time, window time.Duration) ([]*hold.Hold, error)
	FindSignatureExpired(ctx context.Context, q db.DBTX, now time.Time) ([]*hold.Hold, error)
	FindPaymentExpired(ctx context.Context, q db.DBTX, now time.Time) ([]*hold.Hold, error)
	Update(ctx context.Context, tx db.DBTX, h *hold.Hold, expectedVersion int64) error
}

type SlotIndexRepository interface {
	LockForKey(ctx context.Context, tx db.DBTX, key hold.SlotKey) (*repository.SlotIndexEntry, error)
	SetState(ctx context.Context, tx db.DBTX, key hold.SlotKey, state repository.SlotState, refID *uuid.UUID) error
}

type NotificationRepository interface {
	CreateJob(ctx context.Context, tx db.DBTX, kind, topic string, payload []byte, runAt time.Time) error
}

// SweepStats summarizes one pass for logging and tests.
type SweepStats struct {
	SignatureWarned int
	PaymentWarned   int
	ExpiredUnsigned int
	ExpiredUnpaid   int
	Skipped         int
}

// Sweeper enforces hold deadlines in the background. Every pass warns holds
// approaching a deadline and expires holds past one. Each hold is handled in
// its own transaction under the optimistic version check, so a pass is safe
// to re-run and safe to race against customer actions: the loser of any race
// just skips the hold.
type Sweeper struct {
	tx            shared.TxRunner
	holds         HoldSweepRepository
	slotIndex     SlotIndexRepository
	notifications NotificationRepository
	clock         clock.Clock
	cfg           config.SweepConfig
}

func NewSweeper(
	tx shared.TxRunner,
	holds HoldSweepRepository,
	slotIndex SlotIndexRepository,
	notifications NotificationRepository,
	clk clock.Clock,
	cfg config.SweepConfig,
) *Sweeper {
	return &Sweeper{
		tx:            tx,
		holds:         holds,
		slotIndex:     slotIndex,
		notifications: notifications,
		clock:         clk,
		cfg:           cfg,
	}
}

// Run ticks until the context is cancelled. One pass runs immediately on
// start so a restart never extends a deadline.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.runPass(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runPass(ctx)
		}
	}
}

func (s *Sweeper) runPass(ctx context.Context) {
	passCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	stats, err := s.RunOnce(passCtx)
	if err != nil {
		slog.Error("sweep pass failed", "error", err)
		return
	}
	slog.Info("sweep pass finished",
		"signature_warned", stats.SignatureWarned,
		"payment_warned", stats.PaymentWarned,
		"expired_unsigned", stats.ExpiredUnsigned,
		"expired_unpaid", stats.ExpiredUnpaid,
		"skipped", stats.Skipped)
}

// RunOnce executes the four scans of a single pass.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepStats, error) {
	now := s.clock.Now()
	var stats SweepStats

	due, err := s.holds.FindSignatureWarnDue(ctx, s.tx.ReadDB(), now, s.cfg.WarningWindow)
	if err != nil {
		return stats, err
	}
	for _, h := range due {
		s.apply(ctx, h, &stats.SignatureWarned, &stats.Skipped, func(tx db.DBTX) error {
			if err := h.MarkSignatureWarned(now); err != nil {
				return err
			}
			if err := s.holds.Update(ctx, tx, h, h.Version()); err != nil {
				return err
			}
			s.enqueue(ctx, tx, jobSignatureWarning, h, now, h.SignatureDeadline())
			return nil
		})
	}

	due, err = s.holds.FindPaymentWarnDue(ctx, s.tx.ReadDB(), now, s.cfg.WarningWindow)
	if err != nil {
		return stats, err
	}
	for _, h := range due {
		s.apply(ctx, h, &stats.PaymentWarned, &stats.Skipped, func(tx db.DBTX) error {
			if err := h.MarkPaymentWarned(now); err != nil {
				return err
			}
			if err := s.holds.Update(ctx, tx, h, h.Version()); err != nil {
				return err
			}
			if d := h.PaymentDeadline(); d != nil {
				s.enqueue(ctx, tx, jobPaymentWarning, h, now, *d)
			}
			return nil
		})
	}

	expired, err := s.holds.FindSignatureExpired(ctx, s.tx.ReadDB(), now)
	if err != nil {
		return stats, err
	}
	for _, h := range expired {
		s.apply(ctx, h, &stats.ExpiredUnsigned, &stats.Skipped, func(tx db.DBTX) error {
			if err := h.ExpireUnsigned(now); err != nil {
				return err
			}
			return s.expire(ctx, tx, h, now)
		})
	}

	expired, err = s.holds.FindPaymentExpired(ctx, s.tx.ReadDB(), now)
	if err != nil {
		return stats, err
	}
	for _, h := range expired {
		s.apply(ctx, h, &stats.ExpiredUnpaid, &stats.Skipped, func(tx db.DBTX) error {
			if err := h.ExpireUnpaid(now); err != nil {
				return err
			}
			return s.expire(ctx, tx, h, now)
		})
	}

	return stats, nil
}

// apply runs one hold's action in its own transaction. Version races and
// phase refusals mean a customer action got there first; count and move on.
func (s *Sweeper) apply(ctx context.Context, h *hold.Hold, done, skipped *int, fn func(tx db.DBTX) error) {
	err := s.tx.InTx(ctx, fn)
	switch {
	case err == nil:
		*done++
	case infra.IsKind(err, infra.KindStaleVersion),
		errors.Is(err, hold.ErrInvalidPhase),
		errors.Is(err, hold.ErrAlreadyWarned):
		*skipped++
	default:
		slog.Warn("sweep action failed", "hold_id", h.ID(), "error", err)
	}
}

// expire writes the terminal phase and frees the slot index entry.
func (s *Sweeper) expire(ctx context.Context, tx db.DBTX, h *hold.Hold, now time.Time) error {
	if err := s.holds.Update(ctx, tx, h, h.Version()); err != nil {
		return err
	}
	if _, err := s.slotIndex.LockForKey(ctx, tx, h.SlotKey()); err != nil {
		return err
	}
	if err := s.slotIndex.SetState(ctx, tx, h.SlotKey(), repository.SlotFree, nil); err != nil {
		return err
	}
	s.enqueue(ctx, tx, jobHoldExpired, h, now, now)
	return nil
}

func (s *Sweeper) enqueue(ctx context.Context, tx db.DBTX, kind string, h *hold.Hold, now, deadline time.Time) {
	payload, err := json.Marshal(map[string]any{
		"hold_id":  h.ID(),
		"slot_key": h.SlotKey().String(),
		"phase":    h.Phase().String(),
		"deadline": deadline,
	})
	if err != nil {
		slog.Warn("failed to marshal sweep notification", "kind", kind, "error", err)
		return
	}
	if err := s.notifications.CreateJob(ctx, tx, kind, h.CustomerID().String(), payload, now); err != nil {
		slog.Warn("failed to enqueue sweep notification", "kind", kind, "error", err)
	}
}
