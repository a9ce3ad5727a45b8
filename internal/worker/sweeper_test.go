//go:build unit

package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chefslot/internal/domain/hold"
	"chefslot/internal/infra"
	"chefslot/internal/infra/db"
	"chefslot/internal/infra/repository"
	"chefslot/internal/pkg/clock"
	"chefslot/internal/pkg/config"
	"chefslot/internal/worker"
)

var (
	baseTime = time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC)

	sweepCfg = config.SweepConfig{
		Interval:      15 * time.Minute,
		WarningWindow: time.Hour,
		RunTimeout:    2 * time.Minute,
	}

	staleErr = infra.WrapRepoErr("version conflict", nil, infra.KindStaleVersion)
)

type stubTxRunner struct{}

func (stubTxRunner) ReadDB() db.DBTX { return nil }

func (stubTxRunner) InTx(_ context.Context, fn func(tx db.DBTX) error) error {
	return fn(nil)
}

func (stubTxRunner) InTxWithRetry(_ context.Context, fn func(tx db.DBTX) error) error {
	return fn(nil)
}

type mockHoldSweepRepo struct{ mock.Mock }

func (m *mockHoldSweepRepo) FindSignatureWarnDue(ctx context.Context, q db.DBTX, now time.Time, window time.Duration) ([]*hold.Hold, error) {
	args := m.Called(ctx, q, now, window)
	if hs, ok := args.Get(0).([]*hold.Hold); ok {
		return hs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockHoldSweepRepo) FindPaymentWarnDue(ctx context.Context, q db.DBTX, now time.Time, window time.Duration) ([]*hold.Hold, error) {
	args := m.Called(ctx, q, now, window)
	if hs, ok := args.Get(0).([]*hold.Hold); ok {
		return hs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockHoldSweepRepo) FindSignatureExpired(ctx context.Context, q db.DBTX, now time.Time) ([]*hold.Hold, error) {
	args := m.Called(ctx, q, now)
	if hs, ok := args.Get(0).([]*hold.Hold); ok {
		return hs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockHoldSweepRepo) FindPaymentExpired(ctx context.Context, q db.DBTX, now time.Time) ([]*hold.Hold, error) {
	args := m.Called(ctx, q, now)
	if hs, ok := args.Get(0).([]*hold.Hold); ok {
		return hs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockHoldSweepRepo) Update(ctx context.Context, tx db.DBTX, h *hold.Hold, expectedVersion int64) error {
	return m.Called(ctx, tx, h, expectedVersion).Error(0)
}

type mockSlotIndexRepo struct{ mock.Mock }

func (m *mockSlotIndexRepo) LockForKey(ctx context.Context, tx db.DBTX, key hold.SlotKey) (*repository.SlotIndexEntry, error) {
	args := m.Called(ctx, tx, key)
	if e, ok := args.Get(0).(*repository.SlotIndexEntry); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSlotIndexRepo) SetState(ctx context.Context, tx db.DBTX, key hold.SlotKey, state repository.SlotState, refID *uuid.UUID) error {
	return m.Called(ctx, tx, key, state, refID).Error(0)
}

type mockNotificationRepo struct{ mock.Mock }

func (m *mockNotificationRepo) CreateJob(ctx context.Context, tx db.DBTX, kind, topic string, payload []byte, runAt time.Time) error {
	return m.Called(ctx, tx, kind, topic, payload, runAt).Error(0)
}

type sweeperFixture struct {
	holds         *mockHoldSweepRepo
	slotIndex     *mockSlotIndexRepo
	notifications *mockNotificationRepo
	clock         *clock.MockClock
	sweeper       *worker.Sweeper
}

func newSweeperFixture(t *testing.T) *sweeperFixture {
	t.Helper()
	f := &sweeperFixture{
		holds:         &mockHoldSweepRepo{},
		slotIndex:     &mockSlotIndexRepo{},
		notifications: &mockNotificationRepo{},
		clock:         clock.NewMockClock(baseTime),
	}
	f.sweeper = worker.NewSweeper(
		stubTxRunner{}, f.holds, f.slotIndex, f.notifications, f.clock, sweepCfg,
	)
	return f
}

// emptyScans stubs every finder; declare specific Once expectations first.
func (f *sweeperFixture) emptyScans() {
	f.holds.On("FindSignatureWarnDue", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	f.holds.On("FindPaymentWarnDue", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	f.holds.On("FindSignatureExpired", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	f.holds.On("FindPaymentExpired", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
}

func testKey(t *testing.T) hold.SlotKey {
	t.Helper()
	key, err := hold.NewSlotKey(time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC), "18:00", uuid.New())
	require.NoError(t, err)
	return key
}

// createdAt10 rebuilds a hold created at 10:00 with its signature deadline
// at 12:00.
func createdAt10(t *testing.T, key hold.SlotKey) *hold.Hold {
	t.Helper()
	return hold.ReconstructHold(
		uuid.New(), key, uuid.New(), hold.PhaseCreated,
		baseTime, baseTime.Add(2*time.Hour),
		nil, nil, nil, nil, "", 1,
	)
}

// signedAt1030 rebuilds a hold signed at 10:30 with its payment deadline at
// 14:30.
func signedAt1030(t *testing.T, key hold.SlotKey) *hold.Hold {
	t.Helper()
	completed := baseTime.Add(30 * time.Minute)
	payDeadline := completed.Add(4 * time.Hour)
	return hold.ReconstructHold(
		uuid.New(), key, uuid.New(), hold.PhaseSigned,
		baseTime, baseTime.Add(2*time.Hour),
		&completed, &payDeadline, nil, nil, "", 2,
	)
}

func TestSweeper_RunOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("期限に遠いパスは何もしない", func(t *testing.T) {
		f := newSweeperFixture(t)
		f.clock.Set(baseTime.Add(30 * time.Minute))
		f.emptyScans()

		stats, err := f.sweeper.RunOnce(ctx)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(worker.SweepStats{}, stats))
	})

	t.Run("署名期限の1時間前に警告する", func(t *testing.T) {
		f := newSweeperFixture(t)
		key := testKey(t)
		h := createdAt10(t, key)
		now := baseTime.Add(65 * time.Minute) // 11:05, deadline 12:00

		f.clock.Set(now)
		f.holds.On("FindSignatureWarnDue", mock.Anything, mock.Anything, now, sweepCfg.WarningWindow).
			Return([]*hold.Hold{h}, nil).Once()
		f.emptyScans()
		f.holds.On("Update", mock.Anything, mock.Anything, h, int64(1)).Return(nil)
		f.notifications.On("CreateJob", mock.Anything, mock.Anything, "signature_deadline_warning", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		stats, err := f.sweeper.RunOnce(ctx)
		require.NoError(t, err)

		assert.Empty(t, cmp.Diff(worker.SweepStats{SignatureWarned: 1}, stats))
		require.NotNil(t, h.SignatureWarnedAt())
		assert.Equal(t, now, *h.SignatureWarnedAt())
		f.notifications.AssertExpectations(t)
	})

	t.Run("署名期限超過でホールドが失効しスロットが解放される", func(t *testing.T) {
		f := newSweeperFixture(t)
		key := testKey(t)
		h := createdAt10(t, key)
		now := baseTime.Add(2*time.Hour + 5*time.Minute) // 12:05

		f.clock.Set(now)
		f.holds.On("FindSignatureExpired", mock.Anything, mock.Anything, now).
			Return([]*hold.Hold{h}, nil).Once()
		f.emptyScans()
		f.holds.On("Update", mock.Anything, mock.Anything, h, int64(1)).Return(nil)
		f.slotIndex.On("LockForKey", mock.Anything, mock.Anything, key).Return(
			&repository.SlotIndexEntry{Key: key, State: repository.SlotHeld}, nil)
		f.slotIndex.On("SetState", mock.Anything, mock.Anything, key, repository.SlotFree, (*uuid.UUID)(nil)).Return(nil)
		f.notifications.On("CreateJob", mock.Anything, mock.Anything, "hold_expired", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		stats, err := f.sweeper.RunOnce(ctx)
		require.NoError(t, err)

		assert.Empty(t, cmp.Diff(worker.SweepStats{ExpiredUnsigned: 1}, stats))
		assert.Equal(t, hold.PhaseExpiredUnsigned, h.Phase())
		f.slotIndex.AssertExpectations(t)
	})

	t.Run("支払い期限超過で未払い失効する", func(t *testing.T) {
		f := newSweeperFixture(t)
		key := testKey(t)
		h := signedAt1030(t, key)
		now := baseTime.Add(5*time.Hour + 5*time.Minute) // 15:05, deadline 14:30

		f.clock.Set(now)
		f.holds.On("FindPaymentExpired", mock.Anything, mock.Anything, now).
			Return([]*hold.Hold{h}, nil).Once()
		f.emptyScans()
		f.holds.On("Update", mock.Anything, mock.Anything, h, int64(2)).Return(nil)
		f.slotIndex.On("LockForKey", mock.Anything, mock.Anything, key).Return(
			&repository.SlotIndexEntry{Key: key, State: repository.SlotHeld}, nil)
		f.slotIndex.On("SetState", mock.Anything, mock.Anything, key, repository.SlotFree, (*uuid.UUID)(nil)).Return(nil)
		f.notifications.On("CreateJob", mock.Anything, mock.Anything, "hold_expired", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		stats, err := f.sweeper.RunOnce(ctx)
		require.NoError(t, err)

		assert.Empty(t, cmp.Diff(worker.SweepStats{ExpiredUnpaid: 1}, stats))
		assert.Equal(t, hold.PhaseExpiredUnpaid, h.Phase())
	})

	t.Run("版の競合は次のパスに任せる", func(t *testing.T) {
		f := newSweeperFixture(t)
		key := testKey(t)
		h := createdAt10(t, key)
		now := baseTime.Add(65 * time.Minute)

		f.clock.Set(now)
		f.holds.On("FindSignatureWarnDue", mock.Anything, mock.Anything, now, sweepCfg.WarningWindow).
			Return([]*hold.Hold{h}, nil).Once()
		f.emptyScans()
		f.holds.On("Update", mock.Anything, mock.Anything, h, int64(1)).Return(staleErr)

		stats, err := f.sweeper.RunOnce(ctx)
		require.NoError(t, err)

		assert.Empty(t, cmp.Diff(worker.SweepStats{Skipped: 1}, stats))
		f.notifications.AssertNotCalled(t, "CreateJob",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("customer action between scan and apply just skips", func(t *testing.T) {
		f := newSweeperFixture(t)
		key := testKey(t)
		// Scanned as unsigned, but the customer signed in the meantime.
		h := signedAt1030(t, key)
		now := baseTime.Add(2*time.Hour + 5*time.Minute)

		f.clock.Set(now)
		f.holds.On("FindSignatureExpired", mock.Anything, mock.Anything, now).
			Return([]*hold.Hold{h}, nil).Once()
		f.emptyScans()

		stats, err := f.sweeper.RunOnce(ctx)
		require.NoError(t, err)

		assert.Empty(t, cmp.Diff(worker.SweepStats{Skipped: 1}, stats))
		assert.Equal(t, hold.PhaseSigned, h.Phase())
		f.holds.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("支払い警告は一度だけ送られる", func(t *testing.T) {
		f := newSweeperFixture(t)
		key := testKey(t)
		h := signedAt1030(t, key)
		now := baseTime.Add(4 * time.Hour) // 14:00, deadline 14:30

		f.clock.Set(now)
		f.holds.On("FindPaymentWarnDue", mock.Anything, mock.Anything, now, sweepCfg.WarningWindow).
			Return([]*hold.Hold{h}, nil).Once()
		f.emptyScans()
		f.holds.On("Update", mock.Anything, mock.Anything, h, int64(2)).Return(nil)
		f.notifications.On("CreateJob", mock.Anything, mock.Anything, "payment_deadline_warning", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		stats, err := f.sweeper.RunOnce(ctx)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(worker.SweepStats{PaymentWarned: 1}, stats))

		// The repository query excludes warned holds; a second warn attempt
		// on the same hold would be refused by the entity anyway.
		assert.ErrorIs(t, h.MarkPaymentWarned(now.Add(time.Minute)), hold.ErrAlreadyWarned)
	})
}
