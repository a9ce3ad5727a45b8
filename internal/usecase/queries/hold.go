package queries

import (
	"context"
	"time"

	"github.com/google/uuid"

	"chefslot/internal/domain/hold"
	"chefslot/internal/infra"
	"chefslot/internal/infra/db"
	"chefslot/internal/pkg/clock"
	"chefslot/internal/pkg/errs"
)

type HoldReadStore interface {
	FindByID(ctx context.Context, q db.DBTX, id uuid.UUID) (*hold.Hold, error)
}

type HoldQueries interface {
	GetByID(ctx context.Context, id uuid.UUID) (*HoldView, error)
}

type holdQueries struct {
	db    db.DBTX
	holds HoldReadStore
	clock clock.Clock
}

func NewHoldQueries(dbtx db.DBTX, holds HoldReadStore, clk clock.Clock) HoldQueries {
	return &holdQueries{db: dbtx, holds: holds, clock: clk}
}

func (q *holdQueries) GetByID(ctx context.Context, id uuid.UUID) (*HoldView, error) {
	h, err := q.holds.FindByID(ctx, q.db, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, errs.ErrHoldNotFound)
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return holdToView(h, q.clock.Now()), nil
}

// holdToView snapshots the hold as observed at now. The phase is the
// effective one: a hold past its deadline reads as expired between the
// deadline and the sweep that persists it.
func holdToView(h *hold.Hold, now time.Time) *HoldView {
	return &HoldView{
		ID:                   h.ID(),
		EventDate:            h.SlotKey().Date().Format("2006-01-02"),
		TimeSlot:             h.SlotKey().TimeSlot(),
		StationID:            h.SlotKey().StationID(),
		CustomerID:           h.CustomerID(),
		Phase:                h.EffectivePhase(now).String(),
		CreatedAt:            h.CreatedAt(),
		SignatureDeadline:    h.SignatureDeadline(),
		SignatureCompletedAt: h.SignatureCompletedAt(),
		PaymentDeadline:      h.PaymentDeadline(),
		ReleaseReason:        h.ReleaseReason(),
	}
}
