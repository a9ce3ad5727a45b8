package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"chefslot/internal/domain/hold"
	"chefslot/internal/infra"
	"chefslot/internal/infra/db"
	"chefslot/internal/pkg/pgconv"
)

type HoldRepository struct{}

func NewHoldRepository() *HoldRepository {
	return &HoldRepository{}
}

const holdColumns = `id, event_date, time_slot, station_id, customer_id, phase,
	created_at, signature_deadline, signature_completed_at, payment_deadline,
	signature_warned_at, payment_warned_at, release_reason, version`

// phaseParams flattens domain phase sets into a text[] query argument, so the
// SQL scans stay in lockstep with the phase machine.
func phaseParams(sets ...[]hold.Phase) []string {
	var out []string
	for _, set := range sets {
		for _, p := range set {
			out = append(out, p.String())
		}
	}
	return out
}

func scanHold(row pgx.Row) (*hold.Hold, error) {
	var (
		id, stationID, customerID         uuid.UUID
		eventDate, createdAt, sigDeadline time.Time
		timeSlot, phase, releaseReason    string
		sigCompletedAt, payDeadline       *time.Time
		sigWarnedAt, payWarnedAt          *time.Time
		version                           int64
	)

	err := row.Scan(
		&id, &eventDate, &timeSlot, &stationID, &customerID, &phase,
		&createdAt, &sigDeadline, &sigCompletedAt, &payDeadline,
		&sigWarnedAt, &payWarnedAt, &releaseReason, &version,
	)
	if err != nil {
		return nil, err
	}

	key := hold.ReconstructSlotKey(eventDate, timeSlot, stationID)
	return hold.ReconstructHold(
		id, key, customerID, hold.Phase(phase),
		createdAt, sigDeadline, sigCompletedAt, payDeadline,
		sigWarnedAt, payWarnedAt, releaseReason, version,
	), nil
}

// Create inserts a new hold. The partial unique index on active phases is
// the last line of defense against double-claiming a slot key; its 23505
// surfaces as DUPLICATE_KEY.
func (r *HoldRepository) Create(ctx context.Context, tx db.DBTX, h *hold.Hold) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO holds (
			id, event_date, time_slot, station_id, customer_id, phase,
			created_at, signature_deadline, signature_completed_at, payment_deadline,
			signature_warned_at, payment_warned_at, release_reason, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		h.ID(), h.SlotKey().Date(), h.SlotKey().TimeSlot(), h.SlotKey().StationID(),
		h.CustomerID(), h.Phase().String(),
		h.CreatedAt(), h.SignatureDeadline(),
		pgconv.TimePtrToPgtype(h.SignatureCompletedAt()), pgconv.TimePtrToPgtype(h.PaymentDeadline()),
		pgconv.TimePtrToPgtype(h.SignatureWarnedAt()), pgconv.TimePtrToPgtype(h.PaymentWarnedAt()),
		h.ReleaseReason(), h.Version(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return infra.WrapRepoErr("active hold already exists for slot key", err, infra.KindDuplicateKey)
		}
		return infra.WrapRepoErr("failed to create hold", err)
	}
	return nil
}

func (r *HoldRepository) FindByID(ctx context.Context, q db.DBTX, id uuid.UUID) (*hold.Hold, error) {
	row := q.QueryRow(ctx, `SELECT `+holdColumns+` FROM holds WHERE id = $1`, id)

	h, err := scanHold(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("hold not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find hold", err)
	}
	return h, nil
}

// FindActiveBySlotKey returns the active hold occupying the key, if any.
func (r *HoldRepository) FindActiveBySlotKey(ctx context.Context, q db.DBTX, key hold.SlotKey) (*hold.Hold, error) {
	row := q.QueryRow(ctx, `
		SELECT `+holdColumns+`
		FROM holds
		WHERE event_date = $1 AND time_slot = $2 AND station_id = $3
		  AND phase = ANY($4)
	`, key.Date(), key.TimeSlot(), key.StationID(),
		phaseParams(hold.AwaitingSignaturePhases(), hold.AwaitingPaymentPhases()))

	h, err := scanHold(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("no active hold for slot key", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find active hold", err)
	}
	return h, nil
}

// Update writes the hold state only if the stored version still matches
// expectedVersion. A zero-row update means a concurrent writer won the race.
func (r *HoldRepository) Update(ctx context.Context, tx db.DBTX, h *hold.Hold, expectedVersion int64) error {
	tag, err := tx.Exec(ctx, `
		UPDATE holds SET
			phase = $2,
			signature_completed_at = $3,
			payment_deadline = $4,
			signature_warned_at = $5,
			payment_warned_at = $6,
			release_reason = $7,
			version = version + 1
		WHERE id = $1 AND version = $8
	`,
		h.ID(), h.Phase().String(),
		pgconv.TimePtrToPgtype(h.SignatureCompletedAt()), pgconv.TimePtrToPgtype(h.PaymentDeadline()),
		pgconv.TimePtrToPgtype(h.SignatureWarnedAt()), pgconv.TimePtrToPgtype(h.PaymentWarnedAt()),
		h.ReleaseReason(), expectedVersion,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update hold", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("hold version mismatch", nil, infra.KindStaleVersion)
	}
	return nil
}

// Sweeper scans. Each returns holds needing one of the four sweep actions;
// the sweeper re-applies the optimistic update per hold, so a stale read
// here is harmless.

func (r *HoldRepository) FindSignatureWarnDue(ctx context.Context, q db.DBTX, now time.Time, window time.Duration) ([]*hold.Hold, error) {
	rows, err := q.Query(ctx, `
		SELECT `+holdColumns+`
		FROM holds
		WHERE phase = ANY($3)
		  AND signature_deadline > $1
		  AND signature_deadline <= $2
		  AND signature_warned_at IS NULL
	`, now, now.Add(window), phaseParams(hold.AwaitingSignaturePhases()))
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query signature warnings", err)
	}
	return collectHolds(rows)
}

func (r *HoldRepository) FindPaymentWarnDue(ctx context.Context, q db.DBTX, now time.Time, window time.Duration) ([]*hold.Hold, error) {
	rows, err := q.Query(ctx, `
		SELECT `+holdColumns+`
		FROM holds
		WHERE phase = ANY($3)
		  AND payment_deadline > $1
		  AND payment_deadline <= $2
		  AND payment_warned_at IS NULL
	`, now, now.Add(window), phaseParams(hold.AwaitingPaymentPhases()))
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query payment warnings", err)
	}
	return collectHolds(rows)
}

func (r *HoldRepository) FindSignatureExpired(ctx context.Context, q db.DBTX, now time.Time) ([]*hold.Hold, error) {
	rows, err := q.Query(ctx, `
		SELECT `+holdColumns+`
		FROM holds
		WHERE phase = ANY($2)
		  AND signature_deadline < $1
	`, now, phaseParams(hold.AwaitingSignaturePhases()))
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query signature-expired holds", err)
	}
	return collectHolds(rows)
}

func (r *HoldRepository) FindPaymentExpired(ctx context.Context, q db.DBTX, now time.Time) ([]*hold.Hold, error) {
	rows, err := q.Query(ctx, `
		SELECT `+holdColumns+`
		FROM holds
		WHERE phase = ANY($2)
		  AND payment_deadline < $1
	`, now, phaseParams(hold.AwaitingPaymentPhases()))
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query payment-expired holds", err)
	}
	return collectHolds(rows)
}

func collectHolds(rows pgx.Rows) ([]*hold.Hold, error) {
	defer rows.Close()

	var result []*hold.Hold
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan hold row", err)
		}
		result = append(result, h)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("hold row iteration failed", err)
	}
	return result, nil
}
