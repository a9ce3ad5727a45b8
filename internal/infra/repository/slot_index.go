package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"chefslot/internal/domain/hold"
	"chefslot/internal/infra"
	"chefslot/internal/infra/db"
	"chefslot/internal/pkg/pgconv"
)

type SlotState string

const (
	SlotFree   SlotState = "free"
	SlotHeld   SlotState = "held"
	SlotBooked SlotState = "booked"
)

type SlotIndexEntry struct {
	Key   hold.SlotKey
	State SlotState
	RefID *uuid.UUID
}

// SlotIndexRepository owns the per-key serializing lock. A row per slot key
// is inserted on first contact and locked FOR UPDATE for the rest of the
// transaction, so check-then-act sequences on the same key run one at a
// time while unrelated keys stay fully concurrent.
type SlotIndexRepository struct{}

func NewSlotIndexRepository() *SlotIndexRepository {
	return &SlotIndexRepository{}
}

// LockForKey acquires the row lock for the key, inserting a free placeholder
// row first if none exists. Must run inside a transaction.
func (r *SlotIndexRepository) LockForKey(ctx context.Context, tx db.DBTX, key hold.SlotKey) (*SlotIndexEntry, error) {
	_, err := tx.Exec(ctx, `
		INSERT INTO slot_index (event_date, time_slot, station_id, state, updated_at)
		VALUES ($1, $2, $3, 'free', now())
		ON CONFLICT (event_date, time_slot, station_id) DO NOTHING
	`, key.Date(), key.TimeSlot(), key.StationID())
	if err != nil {
		return nil, infra.WrapRepoErr("failed to seed slot index row", err)
	}

	var (
		state string
		refID *uuid.UUID
	)
	err = tx.QueryRow(ctx, `
		SELECT state, ref_id
		FROM slot_index
		WHERE event_date = $1 AND time_slot = $2 AND station_id = $3
		FOR UPDATE
	`, key.Date(), key.TimeSlot(), key.StationID()).Scan(&state, &refID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to lock slot index row", err)
	}

	return &SlotIndexEntry{Key: key, State: SlotState(state), RefID: refID}, nil
}

// SetState flips the index entry. Callers hold the row lock from LockForKey
// or run under the hold's optimistic version check.
func (r *SlotIndexRepository) SetState(ctx context.Context, tx db.DBTX, key hold.SlotKey, state SlotState, refID *uuid.UUID) error {
	tag, err := tx.Exec(ctx, `
		UPDATE slot_index
		SET state = $4, ref_id = $5, updated_at = now()
		WHERE event_date = $1 AND time_slot = $2 AND station_id = $3
	`, key.Date(), key.TimeSlot(), key.StationID(), string(state), pgconv.UUIDPtrToPgtype(refID))
	if err != nil {
		return infra.WrapRepoErr("failed to update slot index", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("slot index row missing", nil, infra.KindNotFound)
	}
	return nil
}

// FindOccupied returns every non-free key for the stations and date range.
// Read-side: the negotiation service subtracts these from the slot grid.
func (r *SlotIndexRepository) FindOccupied(ctx context.Context, q db.DBTX, stationIDs []uuid.UUID, from, to time.Time) ([]hold.SlotKey, error) {
	rows, err := q.Query(ctx, `
		SELECT event_date, time_slot, station_id
		FROM slot_index
		WHERE station_id = ANY($1)
		  AND event_date BETWEEN $2 AND $3
		  AND state <> 'free'
	`, stationIDs, from, to)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query occupied slots", err)
	}
	defer rows.Close()

	var keys []hold.SlotKey
	for rows.Next() {
		var (
			date      time.Time
			timeSlot  string
			stationID uuid.UUID
		)
		if err := rows.Scan(&date, &timeSlot, &stationID); err != nil {
			return nil, infra.WrapRepoErr("failed to scan occupied slot", err)
		}
		keys = append(keys, hold.ReconstructSlotKey(date, timeSlot, stationID))
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("occupied slot iteration failed", err)
	}
	return keys, nil
}

// FindByStationDate lists index entries for one station-day (availability view).
func (r *SlotIndexRepository) FindByStationDate(ctx context.Context, q db.DBTX, stationID uuid.UUID, date time.Time) ([]SlotIndexEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT event_date, time_slot, station_id, state, ref_id
		FROM slot_index
		WHERE station_id = $1 AND event_date = $2
		ORDER BY time_slot
	`, stationID, date)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query station day", err)
	}
	defer rows.Close()

	var entries []SlotIndexEntry
	for rows.Next() {
		var (
			d     time.Time
			slot  string
			st    uuid.UUID
			state string
			refID *uuid.UUID
		)
		if err := rows.Scan(&d, &slot, &st, &state, &refID); err != nil {
			return nil, infra.WrapRepoErr("failed to scan slot index entry", err)
		}
		entries = append(entries, SlotIndexEntry{
			Key:   hold.ReconstructSlotKey(d, slot, st),
			State: SlotState(state),
			RefID: refID,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("slot index iteration failed", err)
	}
	return entries, nil
}
