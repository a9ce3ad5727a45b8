package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"chefslot/internal/domain/hold"
	"chefslot/internal/domain/negotiation"
	"chefslot/internal/infra"
	"chefslot/internal/infra/db"
	"chefslot/internal/pkg/pgconv"
)

type OfferRepository struct{}

func NewOfferRepository() *OfferRepository {
	return &OfferRepository{}
}

const offerColumns = `id, customer_id,
	requested_date, requested_slot, requested_station_id,
	proposed_date, proposed_slot, proposed_station_id,
	rank, expires_at, response, created_at, responded_at`

func scanOffer(row pgx.Row) (*negotiation.Offer, error) {
	var (
		id, customerID          uuid.UUID
		reqDate, propDate       time.Time
		reqSlot, propSlot       string
		reqStation, propStation uuid.UUID
		rank                    int
		expiresAt, createdAt    time.Time
		response                string
		respondedAt             *time.Time
	)

	err := row.Scan(
		&id, &customerID,
		&reqDate, &reqSlot, &reqStation,
		&propDate, &propSlot, &propStation,
		&rank, &expiresAt, &response, &createdAt, &respondedAt,
	)
	if err != nil {
		return nil, err
	}

	return negotiation.ReconstructOffer(
		id, customerID,
		hold.ReconstructSlotKey(reqDate, reqSlot, reqStation),
		hold.ReconstructSlotKey(propDate, propSlot, propStation),
		rank, expiresAt, negotiation.Response(response), createdAt, respondedAt,
	), nil
}

func (r *OfferRepository) CreateBatch(ctx context.Context, tx db.DBTX, offers []*negotiation.Offer) error {
	for _, o := range offers {
		_, err := tx.Exec(ctx, `
			INSERT INTO negotiation_offers (
				id, customer_id,
				requested_date, requested_slot, requested_station_id,
				proposed_date, proposed_slot, proposed_station_id,
				rank, expires_at, response, created_at, responded_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`,
			o.ID(), o.CustomerID(),
			o.RequestedKey().Date(), o.RequestedKey().TimeSlot(), o.RequestedKey().StationID(),
			o.ProposedKey().Date(), o.ProposedKey().TimeSlot(), o.ProposedKey().StationID(),
			o.Rank(), o.ExpiresAt(), string(o.Response()), o.CreatedAt(),
			pgconv.TimePtrToPgtype(o.RespondedAt()),
		)
		if err != nil {
			return infra.WrapRepoErr("failed to create negotiation offer", err)
		}
	}
	return nil
}

func (r *OfferRepository) FindByID(ctx context.Context, q db.DBTX, id uuid.UUID) (*negotiation.Offer, error) {
	row := q.QueryRow(ctx, `SELECT `+offerColumns+` FROM negotiation_offers WHERE id = $1`, id)

	o, err := scanOffer(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("offer not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find offer", err)
	}
	return o, nil
}

// CloseOffer persists a response. The pending guard makes concurrent
// responses first-writer-wins, mirroring the hold version check.
func (r *OfferRepository) CloseOffer(ctx context.Context, tx db.DBTX, o *negotiation.Offer) error {
	tag, err := tx.Exec(ctx, `
		UPDATE negotiation_offers
		SET response = $2, responded_at = $3
		WHERE id = $1 AND response = 'pending'
	`, o.ID(), string(o.Response()), pgconv.TimePtrToPgtype(o.RespondedAt()))
	if err != nil {
		return infra.WrapRepoErr("failed to close offer", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("offer already closed", nil, infra.KindStaleVersion)
	}
	return nil
}
