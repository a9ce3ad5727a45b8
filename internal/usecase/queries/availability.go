package queries

import (
	"context"
	"time"

	"github.com/google/uuid"

	"chefslot/internal/infra/db"
	"chefslot/internal/infra/repository"
	"chefslot/internal/pkg/config"
	"chefslot/internal/pkg/errs"
)

type SlotIndexReadStore interface {
	FindByStationDate(ctx context.Context, q db.DBTX, stationID uuid.UUID, date time.Time) ([]repository.SlotIndexEntry, error)
}

type AvailabilityQueries interface {
	StationDay(ctx context.Context, stationID uuid.UUID, date time.Time) (*AvailabilityView, error)
}

type availabilityQueries struct {
	db        db.DBTX
	slotIndex SlotIndexReadStore
	cfg       config.OfferConfig
}

func NewAvailabilityQueries(dbtx db.DBTX, slotIndex SlotIndexReadStore, cfg config.OfferConfig) AvailabilityQueries {
	return &availabilityQueries{db: dbtx, slotIndex: slotIndex, cfg: cfg}
}

// StationDay projects one station-day onto the canonical slot grid. Keys the
// index has never seen are free; the index only grows rows on first contact.
func (q *availabilityQueries) StationDay(ctx context.Context, stationID uuid.UUID, date time.Time) (*AvailabilityView, error) {
	entries, err := q.slotIndex.FindByStationDate(ctx, q.db, stationID, date)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	states := make(map[string]repository.SlotState, len(entries))
	for _, e := range entries {
		states[e.Key.TimeSlot()] = e.State
	}

	slots := make([]SlotStatusView, 0, len(q.cfg.TimeSlots))
	for _, slot := range q.cfg.TimeSlots {
		state := repository.SlotFree
		if s, ok := states[slot]; ok {
			state = s
		}
		slots = append(slots, SlotStatusView{TimeSlot: slot, State: string(state)})
	}

	return &AvailabilityView{
		StationID: stationID,
		EventDate: date.Format("2006-01-02"),
		Slots:     slots,
	}, nil
}
