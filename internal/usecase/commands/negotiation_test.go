//go:build unit

package commands_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chefslot/internal/domain/hold"
	"chefslot/internal/domain/negotiation"
	"chefslot/internal/infra/repository"
	"chefslot/internal/pkg/clock"
	"chefslot/internal/pkg/config"
	"chefslot/internal/pkg/errs"
	"chefslot/internal/usecase/commands"
)

var offerCfg = config.OfferConfig{
	TTL:          24 * time.Hour,
	MaxProposals: 4,
	DateWindow:   1,
	TimeSlots:    []string{"18:00", "20:00"},
}

type negotiationFixture struct {
	offers        *mockOfferRepo
	slotIndex     *mockSlotIndexRepo
	stations      *mockStationRepo
	holds         *mockHoldCommands
	notifications *mockNotificationRepo
	clock         *clock.MockClock
	commands      commands.NegotiationCommands
}

func newNegotiationFixture(t *testing.T, cfg config.OfferConfig) *negotiationFixture {
	t.Helper()
	f := &negotiationFixture{
		offers:        &mockOfferRepo{},
		slotIndex:     &mockSlotIndexRepo{},
		stations:      &mockStationRepo{},
		holds:         &mockHoldCommands{},
		notifications: &mockNotificationRepo{},
		clock:         clock.NewMockClock(baseTime),
	}
	f.commands = commands.NewNegotiationCommands(
		stubTxRunner{}, f.offers, f.slotIndex, f.stations, f.holds,
		f.notifications, f.clock, cfg,
	)
	return f
}

func TestNegotiationCommands_ProposeAlternatives(t *testing.T) {
	ctx := context.Background()

	t.Run("埋まっているスロットの近傍から代替案を作る", func(t *testing.T) {
		f := newNegotiationFixture(t, offerCfg)
		customerID := uuid.New()
		origin := uuid.New()
		sibling := uuid.New()
		requested, err := hold.NewSlotKey(time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC), "18:00", origin)
		require.NoError(t, err)

		f.stations.On("FindRoutes", mock.Anything, mock.Anything, origin).Return(
			[]repository.StationRoute{{StationID: sibling, TravelMinutes: 15}}, nil)
		// The requested key itself is the only occupied one.
		f.slotIndex.On("FindOccupied", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(
			[]hold.SlotKey{requested}, nil)
		f.offers.On("CreateBatch", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		f.notifications.On("CreateJob", mock.Anything, mock.Anything, "negotiation_offers", customerID.String(), mock.Anything, mock.Anything).Return(nil)

		offers, err := f.commands.ProposeAlternatives(ctx, customerID, requested)
		require.NoError(t, err)
		require.Len(t, offers, offerCfg.MaxProposals)

		// Same station, same date, two hours later is the closest alternative.
		best := offers[0]
		assert.Equal(t, 1, best.Rank())
		assert.True(t, best.ProposedKey().Equal(
			hold.ReconstructSlotKey(requested.Date(), "20:00", origin)))
		assert.Equal(t, baseTime.Add(offerCfg.TTL), best.ExpiresAt())

		for i, o := range offers {
			assert.Equal(t, i+1, o.Rank())
			assert.Equal(t, customerID, o.CustomerID())
			assert.False(t, o.ProposedKey().Equal(requested))
		}
		f.offers.AssertExpectations(t)
	})

	t.Run("候補が尽きたら交渉不成立", func(t *testing.T) {
		// One slot, zero-day window, no sibling stations: the grid is exactly
		// the requested key, which is never offered back.
		cfg := config.OfferConfig{TTL: 24 * time.Hour, MaxProposals: 4, DateWindow: 0, TimeSlots: []string{"18:00"}}
		f := newNegotiationFixture(t, cfg)
		requested, err := hold.NewSlotKey(time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC), "18:00", uuid.New())
		require.NoError(t, err)

		f.stations.On("FindRoutes", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
		f.slotIndex.On("FindOccupied", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

		_, err = f.commands.ProposeAlternatives(ctx, uuid.New(), requested)
		assert.ErrorIs(t, err, errs.ErrNoAlternatives)
		f.offers.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("past dates never enter the grid", func(t *testing.T) {
		f := newNegotiationFixture(t, offerCfg)
		// Requested today with a one-day window: yesterday falls in the
		// window but must be clamped to today.
		requested, err := hold.NewSlotKey(baseTime, "18:00", uuid.New())
		require.NoError(t, err)

		f.stations.On("FindRoutes", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
		f.slotIndex.On("FindOccupied", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
		f.offers.On("CreateBatch", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		f.notifications.On("CreateJob", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		today := time.Date(baseTime.Year(), baseTime.Month(), baseTime.Day(), 0, 0, 0, 0, time.UTC)
		offers, err := f.commands.ProposeAlternatives(ctx, uuid.New(), requested)
		require.NoError(t, err)
		for _, o := range offers {
			assert.False(t, o.ProposedKey().Date().Before(today),
				"proposed %s is in the past", o.ProposedKey().String())
		}
	})
}

func TestNegotiationCommands_RespondToOffer(t *testing.T) {
	ctx := context.Background()

	openOffer := func(t *testing.T, f *negotiationFixture) *negotiation.Offer {
		t.Helper()
		origin := uuid.New()
		requested, err := hold.NewSlotKey(time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC), "18:00", origin)
		require.NoError(t, err)
		proposed, err := hold.NewSlotKey(time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC), "20:00", origin)
		require.NoError(t, err)
		return negotiation.NewOffer(uuid.New(), requested, proposed, 1, baseTime, 24*time.Hour)
	}

	t.Run("承諾で提案スロットのホールドが作られる", func(t *testing.T) {
		f := newNegotiationFixture(t, offerCfg)
		o := openOffer(t, f)
		created := createdHold(t, o.ProposedKey())

		f.offers.On("FindByID", mock.Anything, mock.Anything, o.ID()).Return(o, nil)
		f.offers.On("CloseOffer", mock.Anything, mock.Anything, o).Return(nil)
		f.holds.On("CreateHold", mock.Anything, o.ProposedKey(), o.CustomerID()).Return(created, nil)

		gotOffer, gotHold, err := f.commands.RespondToOffer(ctx, o.ID(), true)
		require.NoError(t, err)

		assert.Equal(t, negotiation.ResponseAccepted, gotOffer.Response())
		require.NotNil(t, gotHold)
		assert.True(t, gotHold.SlotKey().Equal(o.ProposedKey()))
	})

	t.Run("拒否はホールドを作らない", func(t *testing.T) {
		f := newNegotiationFixture(t, offerCfg)
		o := openOffer(t, f)

		f.offers.On("FindByID", mock.Anything, mock.Anything, o.ID()).Return(o, nil)
		f.offers.On("CloseOffer", mock.Anything, mock.Anything, o).Return(nil)

		gotOffer, gotHold, err := f.commands.RespondToOffer(ctx, o.ID(), false)
		require.NoError(t, err)

		assert.Equal(t, negotiation.ResponseRejected, gotOffer.Response())
		assert.Nil(t, gotHold)
		f.holds.AssertNotCalled(t, "CreateHold", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("accept is one-shot even when the slot was lost meanwhile", func(t *testing.T) {
		f := newNegotiationFixture(t, offerCfg)
		o := openOffer(t, f)

		f.offers.On("FindByID", mock.Anything, mock.Anything, o.ID()).Return(o, nil)
		f.offers.On("CloseOffer", mock.Anything, mock.Anything, o).Return(nil)
		f.holds.On("CreateHold", mock.Anything, o.ProposedKey(), o.CustomerID()).Return(
			nil, errs.Mark(errs.New("slot is held"), errs.ErrSlotUnavailable))

		gotOffer, gotHold, err := f.commands.RespondToOffer(ctx, o.ID(), true)
		assert.ErrorIs(t, err, errs.ErrSlotUnavailable)

		// The offer is consumed; the customer negotiates again.
		require.NotNil(t, gotOffer)
		assert.Equal(t, negotiation.ResponseAccepted, gotOffer.Response())
		assert.Nil(t, gotHold)
	})

	t.Run("期限切れオファーは遅延クローズされる", func(t *testing.T) {
		f := newNegotiationFixture(t, offerCfg)
		o := openOffer(t, f)
		f.clock.Set(o.ExpiresAt().Add(time.Minute))

		f.offers.On("FindByID", mock.Anything, mock.Anything, o.ID()).Return(o, nil)
		f.offers.On("CloseOffer", mock.Anything, mock.Anything, o).Return(nil)

		_, _, err := f.commands.RespondToOffer(ctx, o.ID(), true)
		assert.ErrorIs(t, err, errs.ErrOfferClosed)
		assert.Equal(t, negotiation.ResponseExpired, o.Response())
		f.offers.AssertCalled(t, "CloseOffer", mock.Anything, mock.Anything, o)
	})

	t.Run("already answered offers stay closed", func(t *testing.T) {
		f := newNegotiationFixture(t, offerCfg)
		o := openOffer(t, f)
		require.NoError(t, o.Reject(baseTime.Add(time.Hour)))

		f.offers.On("FindByID", mock.Anything, mock.Anything, o.ID()).Return(o, nil)

		_, _, err := f.commands.RespondToOffer(ctx, o.ID(), true)
		assert.ErrorIs(t, err, errs.ErrOfferClosed)
		f.offers.AssertNotCalled(t, "CloseOffer", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("concurrent responses lose to the stale version check", func(t *testing.T) {
		f := newNegotiationFixture(t, offerCfg)
		o := openOffer(t, f)

		f.offers.On("FindByID", mock.Anything, mock.Anything, o.ID()).Return(o, nil)
		f.offers.On("CloseOffer", mock.Anything, mock.Anything, o).Return(staleErr)

		_, _, err := f.commands.RespondToOffer(ctx, o.ID(), true)
		assert.ErrorIs(t, err, errs.ErrOfferClosed)
		f.holds.AssertNotCalled(t, "CreateHold", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown offer", func(t *testing.T) {
		f := newNegotiationFixture(t, offerCfg)
		id := uuid.New()
		f.offers.On("FindByID", mock.Anything, mock.Anything, id).Return(nil, notFoundErr)

		_, _, err := f.commands.RespondToOffer(ctx, id, true)
		assert.ErrorIs(t, err, errs.ErrOfferNotFound)
	})
}
