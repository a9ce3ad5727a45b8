//go:build unit

package queries_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chefslot/internal/domain/hold"
	"chefslot/internal/infra"
	"chefslot/internal/infra/db"
	"chefslot/internal/pkg/clock"
	"chefslot/internal/pkg/errs"
	"chefslot/internal/usecase/queries"
)

var baseTime = time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC)

type mockHoldReadStore struct{ mock.Mock }

func (m *mockHoldReadStore) FindByID(ctx context.Context, q db.DBTX, id uuid.UUID) (*hold.Hold, error) {
	args := m.Called(ctx, q, id)
	if h, ok := args.Get(0).(*hold.Hold); ok {
		return h, args.Error(1)
	}
	return nil, args.Error(1)
}

func storedHold(t *testing.T, phase hold.Phase, payDeadline *time.Time) *hold.Hold {
	t.Helper()
	key, err := hold.NewSlotKey(time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC), "18:00", uuid.New())
	require.NoError(t, err)
	return hold.ReconstructHold(
		uuid.New(), key, uuid.New(), phase,
		baseTime, baseTime.Add(2*time.Hour),
		nil, payDeadline, nil, nil, "", 1,
	)
}

func TestHoldQueries_GetByID(t *testing.T) {
	ctx := context.Background()

	fixture := func(now time.Time) (*mockHoldReadStore, queries.HoldQueries) {
		store := &mockHoldReadStore{}
		return store, queries.NewHoldQueries(nil, store, clock.NewMockClock(now))
	}

	t.Run("期限内は保存フェーズを返す", func(t *testing.T) {
		store, q := fixture(baseTime.Add(time.Hour))
		h := storedHold(t, hold.PhaseCreated, nil)
		store.On("FindByID", mock.Anything, mock.Anything, h.ID()).Return(h, nil)

		view, err := q.GetByID(ctx, h.ID())
		require.NoError(t, err)
		assert.Equal(t, "created", view.Phase)
	})

	t.Run("署名期限超過はスイープ前の照会でも失効として見える", func(t *testing.T) {
		// The sweeper runs on an interval; a read between the deadline and
		// the next pass must not report the hold as still claimable.
		store, q := fixture(baseTime.Add(3 * time.Hour))
		h := storedHold(t, hold.PhaseCreated, nil)
		store.On("FindByID", mock.Anything, mock.Anything, h.ID()).Return(h, nil)

		view, err := q.GetByID(ctx, h.ID())
		require.NoError(t, err)
		assert.Equal(t, "expired_unsigned", view.Phase)
	})

	t.Run("支払い期限超過の署名済みホールド", func(t *testing.T) {
		payDeadline := baseTime.Add(5 * time.Hour)
		store, q := fixture(payDeadline.Add(time.Minute))
		h := storedHold(t, hold.PhaseSigned, &payDeadline)
		store.On("FindByID", mock.Anything, mock.Anything, h.ID()).Return(h, nil)

		view, err := q.GetByID(ctx, h.ID())
		require.NoError(t, err)
		assert.Equal(t, "expired_unpaid", view.Phase)
	})

	t.Run("unknown hold", func(t *testing.T) {
		store, q := fixture(baseTime)
		id := uuid.New()
		store.On("FindByID", mock.Anything, mock.Anything, id).Return(
			nil, infra.WrapRepoErr("no rows", nil, infra.KindNotFound))

		_, err := q.GetByID(ctx, id)
		assert.ErrorIs(t, err, errs.ErrHoldNotFound)
	})
}
