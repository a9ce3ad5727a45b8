package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"chefslot/internal/domain/hold"
	"chefslot/internal/domain/negotiation"
	"chefslot/internal/infra"
	"chefslot/internal/infra/db"
	"chefslot/internal/pkg/clock"
	"chefslot/internal/pkg/config"
	"chefslot/internal/pkg/errs"
	"chefslot/internal/usecase/shared"
)

const jobNegotiationOffers = "negotiation_offers"

type NegotiationCommands interface {
	ProposeAlternatives(ctx context.Context, customerID uuid.UUID, requested hold.SlotKey) ([]*negotiation.Offer, error)
	RespondToOffer(ctx context.Context, offerID uuid.UUID, accept bool) (*negotiation.Offer, *hold.Hold, error)
}

type negotiationCommands struct {
	tx            shared.TxRunner
	offers        OfferRepository
	slotIndex     SlotIndexRepository
	stations      StationRepository
	holds         HoldCommands
	notifications NotificationRepository
	clock         clock.Clock
	cfg           config.OfferConfig
}

func NewNegotiationCommands(
	tx shared.TxRunner,
	offers OfferRepository,
	slotIndex SlotIndexRepository,
	stations StationRepository,
	holds HoldCommands,
	notifications NotificationRepository,
	clk clock.Clock,
	cfg config.OfferConfig,
) NegotiationCommands {
	return &negotiationCommands{
		tx:            tx,
		offers:        offers,
		slotIndex:     slotIndex,
		stations:      stations,
		holds:         holds,
		notifications: notifications,
		clock:         clk,
		cfg:           cfg,
	}
}

// ProposeAlternatives builds the candidate grid around the requested slot
// (same-station nearby dates plus sibling stations from the route table),
// subtracts occupied keys, ranks, and persists the top offers.
func (u *negotiationCommands) ProposeAlternatives(ctx context.Context, customerID uuid.UUID, requested hold.SlotKey) ([]*negotiation.Offer, error) {
	now := u.clock.Now()

	routes, err := u.stations.FindRoutes(ctx, u.tx.ReadDB(), requested.StationID())
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	travel := map[uuid.UUID]int{requested.StationID(): 0}
	stationIDs := []uuid.UUID{requested.StationID()}
	for _, rt := range routes {
		travel[rt.StationID] = rt.TravelMinutes
		stationIDs = append(stationIDs, rt.StationID)
	}

	from := requested.Date().AddDate(0, 0, -u.cfg.DateWindow)
	if today := startOfDay(now); from.Before(today) {
		from = today
	}
	to := requested.Date().AddDate(0, 0, u.cfg.DateWindow)

	occupied, err := u.slotIndex.FindOccupied(ctx, u.tx.ReadDB(), stationIDs, from, to)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	taken := make(map[string]struct{}, len(occupied))
	for _, k := range occupied {
		taken[k.String()] = struct{}{}
	}

	var candidates []hold.SlotKey
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		for _, slot := range u.cfg.TimeSlots {
			for _, st := range stationIDs {
				k := hold.ReconstructSlotKey(d, slot, st)
				if _, ok := taken[k.String()]; ok {
					continue
				}
				candidates = append(candidates, k)
			}
		}
	}

	ranked := negotiation.RankAlternatives(requested, candidates, travel, u.cfg.MaxProposals)
	if len(ranked) == 0 {
		return nil, errs.Mark(errs.New("candidate grid exhausted"), errs.ErrNoAlternatives)
	}

	offers := make([]*negotiation.Offer, 0, len(ranked))
	for i, rs := range ranked {
		offers = append(offers, negotiation.NewOffer(customerID, requested, rs.Key, i+1, now, u.cfg.TTL))
	}

	err = u.tx.InTx(ctx, func(tx db.DBTX) error {
		if err := u.offers.CreateBatch(ctx, tx, offers); err != nil {
			return err
		}
		u.notifyOffers(ctx, tx, customerID, requested, offers)
		return nil
	})
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return offers, nil
}

// RespondToOffer settles one offer. A response is one-shot: accept consumes
// the offer before the hold is attempted, so a lost slot means the customer
// negotiates again rather than replaying the same offer.
func (u *negotiationCommands) RespondToOffer(ctx context.Context, offerID uuid.UUID, accept bool) (*negotiation.Offer, *hold.Hold, error) {
	o, err := u.offers.FindByID(ctx, u.tx.ReadDB(), offerID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, nil, errs.Mark(err, errs.ErrOfferNotFound)
		}
		return nil, nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	now := u.clock.Now()
	if !o.IsOpen(now) {
		if o.Response() == negotiation.ResponsePending {
			u.expireOffer(ctx, o, now)
		}
		return nil, nil, errs.Mark(errs.New("offer is "+string(o.Response())), errs.ErrOfferClosed)
	}

	if accept {
		if err := o.Accept(now); err != nil {
			return nil, nil, errs.Mark(err, errs.ErrOfferClosed)
		}
	} else {
		if err := o.Reject(now); err != nil {
			return nil, nil, errs.Mark(err, errs.ErrOfferClosed)
		}
	}

	err = u.tx.InTx(ctx, func(tx db.DBTX) error {
		return u.offers.CloseOffer(ctx, tx, o)
	})
	if err != nil {
		if infra.IsKind(err, infra.KindStaleVersion) {
			// Another response landed first.
			return nil, nil, errs.Mark(err, errs.ErrOfferClosed)
		}
		return nil, nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	if !accept {
		return o, nil, nil
	}

	h, err := u.holds.CreateHold(ctx, o.ProposedKey(), o.CustomerID())
	if err != nil {
		return o, nil, err
	}
	return o, h, nil
}

func (u *negotiationCommands) expireOffer(ctx context.Context, o *negotiation.Offer, now time.Time) {
	if err := o.Expire(now); err != nil {
		return
	}
	err := u.tx.InTx(ctx, func(tx db.DBTX) error {
		return u.offers.CloseOffer(ctx, tx, o)
	})
	if err != nil && !infra.IsKind(err, infra.KindStaleVersion) {
		slog.Warn("failed to lazily expire offer", "offer_id", o.ID(), "error", err)
	}
}

func (u *negotiationCommands) notifyOffers(ctx context.Context, tx db.DBTX, customerID uuid.UUID, requested hold.SlotKey, offers []*negotiation.Offer) {
	proposals := make([]string, 0, len(offers))
	for _, o := range offers {
		proposals = append(proposals, o.ProposedKey().String())
	}
	payload, err := json.Marshal(map[string]any{
		"requested_slot": requested.String(),
		"proposals":      proposals,
	})
	if err != nil {
		slog.Warn("failed to marshal offers payload", "error", err)
		return
	}
	if err := u.notifications.CreateJob(ctx, tx, jobNegotiationOffers, customerID.String(), payload, u.clock.Now()); err != nil {
		slog.Warn("failed to enqueue offers notification", "error", err)
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
