package commands

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"chefslot/internal/domain/assignment"
	"chefslot/internal/domain/booking"
	"chefslot/internal/infra"
	"chefslot/internal/infra/db"
	"chefslot/internal/pkg/clock"
	"chefslot/internal/pkg/config"
	"chefslot/internal/pkg/errs"
	"chefslot/internal/usecase/shared"
)

const jobAssignmentEscalation = "assignment_escalation"

// eventHours is the load-balancing cost of one dinner engagement. Assignment
// history sums these per worker per calendar month.
const eventHours = 3.0

type AssignmentCommands interface {
	AssignWorker(ctx context.Context, bookingID uuid.UUID) (assignment.Assignment, error)
}

type assignmentCommands struct {
	tx            shared.TxRunner
	bookings      BookingRepository
	directory     WorkerDirectory
	assignments   AssignmentRepository
	notifications NotificationRepository
	clock         clock.Clock
	holdCfg       config.HoldConfig
	weights       assignment.Weights
}

func NewAssignmentCommands(
	tx shared.TxRunner,
	bookings BookingRepository,
	directory WorkerDirectory,
	assignments AssignmentRepository,
	notifications NotificationRepository,
	clk clock.Clock,
	holdCfg config.HoldConfig,
	assignCfg config.AssignConfig,
) AssignmentCommands {
	return &assignmentCommands{
		tx:            tx,
		bookings:      bookings,
		directory:     directory,
		assignments:   assignments,
		notifications: notifications,
		clock:         clk,
		holdCfg:       holdCfg,
		weights: assignment.Weights{
			Travel:      assignCfg.TravelWeight,
			Tier:        assignCfg.TierWeight,
			Performance: assignCfg.PerformanceWeight,
		},
	}
}

// AssignWorker runs the optimizer for a booking. Re-running replaces the
// previous pick; a booking with no eligible worker stays valid, unassigned,
// and escalated to the ops queue.
func (u *assignmentCommands) AssignWorker(ctx context.Context, bookingID uuid.UUID) (assignment.Assignment, error) {
	for attempt := 0; ; attempt++ {
		b, err := u.bookings.FindByID(ctx, u.tx.ReadDB(), bookingID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return assignment.Assignment{}, errs.Mark(err, errs.ErrBookingNotFound)
			}
			return assignment.Assignment{}, errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if !b.IsActive() {
			return assignment.Assignment{}, errs.Mark(errs.New("booking is closed"), errs.ErrBookingClosed)
		}

		candidates, err := u.directory.ListAvailable(ctx, u.tx.ReadDB(), b.SlotKey())
		if err != nil {
			return assignment.Assignment{}, errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		picked, err := assignment.Pick(candidates, u.weights)
		if err != nil {
			if errors.Is(err, assignment.ErrNoCandidates) {
				u.escalate(ctx, b)
				return assignment.Assignment{}, errs.Mark(err, errs.ErrNoWorkerAvailable)
			}
			return assignment.Assignment{}, err
		}

		a := assignment.Assignment{
			BookingID:        b.ID(),
			WorkerID:         picked.WorkerID,
			TravelScore:      picked.TravelScore,
			TierScore:        picked.TierScore,
			PerformanceScore: picked.PerformanceScore,
			TotalScore:       picked.Total,
			AssignedAt:       u.clock.Now(),
		}

		if err := b.AssignWorker(picked.WorkerID); err != nil {
			return assignment.Assignment{}, errs.Mark(err, errs.ErrBookingClosed)
		}

		err = u.tx.InTx(ctx, func(tx db.DBTX) error {
			if err := u.bookings.Update(ctx, tx, b, b.Version()); err != nil {
				return err
			}
			return u.assignments.Upsert(ctx, tx, a, eventHours)
		})
		if err == nil {
			return a, nil
		}
		if infra.IsKind(err, infra.KindStaleVersion) && attempt < u.holdCfg.MaxWriteRetries {
			slog.Warn("booking version raced during assignment, reloading",
				"booking_id", bookingID, "attempt", attempt+1)
			continue
		}
		return assignment.Assignment{}, wrapWriteErr(err)
	}
}

// escalate records an ops notification for a booking nobody can serve.
// Runs in its own transaction; the booking itself is untouched.
func (u *assignmentCommands) escalate(ctx context.Context, b *booking.Booking) {
	payload, err := json.Marshal(map[string]any{
		"booking_id": b.ID(),
		"slot_key":   b.SlotKey().String(),
	})
	if err != nil {
		slog.Warn("failed to marshal escalation payload", "booking_id", b.ID(), "error", err)
		return
	}

	err = u.tx.InTx(ctx, func(tx db.DBTX) error {
		return u.notifications.CreateJob(ctx, tx, jobAssignmentEscalation, "ops", payload, u.clock.Now())
	})
	if err != nil {
		slog.Warn("failed to enqueue escalation job", "booking_id", b.ID(), "error", err)
	}
}
