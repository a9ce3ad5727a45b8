//go:build unit

package commands_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"chefslot/internal/domain/assignment"
	"chefslot/internal/domain/booking"
	"chefslot/internal/domain/hold"
	"chefslot/internal/domain/negotiation"
	"chefslot/internal/infra/db"
	"chefslot/internal/infra/repository"
)

// stubTxRunner executes callbacks inline with a nil handle. The repository
// mocks below never touch the handle, so transaction plumbing stays out of
// the way of the behavior under test.
type stubTxRunner struct{}

func (stubTxRunner) ReadDB() db.DBTX { return nil }

func (stubTxRunner) InTx(_ context.Context, fn func(tx db.DBTX) error) error {
	return fn(nil)
}

func (stubTxRunner) InTxWithRetry(_ context.Context, fn func(tx db.DBTX) error) error {
	return fn(nil)
}

type mockHoldRepo struct{ mock.Mock }

func (m *mockHoldRepo) Create(ctx context.Context, tx db.DBTX, h *hold.Hold) error {
	return m.Called(ctx, tx, h).Error(0)
}

func (m *mockHoldRepo) FindByID(ctx context.Context, q db.DBTX, id uuid.UUID) (*hold.Hold, error) {
	args := m.Called(ctx, q, id)
	if h, ok := args.Get(0).(*hold.Hold); ok {
		return h, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockHoldRepo) FindActiveBySlotKey(ctx context.Context, q db.DBTX, key hold.SlotKey) (*hold.Hold, error) {
	args := m.Called(ctx, q, key)
	if h, ok := args.Get(0).(*hold.Hold); ok {
		return h, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockHoldRepo) Update(ctx context.Context, tx db.DBTX, h *hold.Hold, expectedVersion int64) error {
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

func (m *mockSlotIndexRepo) FindOccupied(ctx context.Context, q db.DBTX, stationIDs []uuid.UUID, from, to time.Time) ([]hold.SlotKey, error) {
	args := m.Called(ctx, q, stationIDs, from, to)
	if keys, ok := args.Get(0).([]hold.SlotKey); ok {
		return keys, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockBookingRepo struct{ mock.Mock }

func (m *mockBookingRepo) Create(ctx context.Context, tx db.DBTX, b *booking.Booking) error {
	return m.Called(ctx, tx, b).Error(0)
}

func (m *mockBookingRepo) FindByID(ctx context.Context, q db.DBTX, id uuid.UUID) (*booking.Booking, error) {
	args := m.Called(ctx, q, id)
	if b, ok := args.Get(0).(*booking.Booking); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookingRepo) FindActiveBySlotKey(ctx context.Context, q db.DBTX, key hold.SlotKey) (*booking.Booking, error) {
	args := m.Called(ctx, q, key)
	if b, ok := args.Get(0).(*booking.Booking); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookingRepo) Update(ctx context.Context, tx db.DBTX, b *booking.Booking, expectedVersion int64) error {
	return m.Called(ctx, tx, b, expectedVersion).Error(0)
}

type mockOfferRepo struct{ mock.Mock }

func (m *mockOfferRepo) CreateBatch(ctx context.Context, tx db.DBTX, offers []*negotiation.Offer) error {
	return m.Called(ctx, tx, offers).Error(0)
}

func (m *mockOfferRepo) FindByID(ctx context.Context, q db.DBTX, id uuid.UUID) (*negotiation.Offer, error) {
	args := m.Called(ctx, q, id)
	if o, ok := args.Get(0).(*negotiation.Offer); ok {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOfferRepo) CloseOffer(ctx context.Context, tx db.DBTX, o *negotiation.Offer) error {
	return m.Called(ctx, tx, o).Error(0)
}

type mockWorkerDirectory struct{ mock.Mock }

func (m *mockWorkerDirectory) ListAvailable(ctx context.Context, q db.DBTX, key hold.SlotKey) ([]assignment.Candidate, error) {
	args := m.Called(ctx, q, key)
	if c, ok := args.Get(0).([]assignment.Candidate); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAssignmentRepo struct{ mock.Mock }

func (m *mockAssignmentRepo) Upsert(ctx context.Context, tx db.DBTX, a assignment.Assignment, hours float64) error {
	return m.Called(ctx, tx, a, hours).Error(0)
}

type mockStationRepo struct{ mock.Mock }

func (m *mockStationRepo) FindRoutes(ctx context.Context, q db.DBTX, originID uuid.UUID) ([]repository.StationRoute, error) {
	args := m.Called(ctx, q, originID)
	if r, ok := args.Get(0).([]repository.StationRoute); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockNotificationRepo struct{ mock.Mock }

func (m *mockNotificationRepo) CreateJob(ctx context.Context, tx db.DBTX, kind, topic string, payload []byte, runAt time.Time) error {
	return m.Called(ctx, tx, kind, topic, payload, runAt).Error(0)
}

type mockHoldCommands struct{ mock.Mock }

func (m *mockHoldCommands) CreateHold(ctx context.Context, key hold.SlotKey, customerID uuid.UUID) (*hold.Hold, error) {
	args := m.Called(ctx, key, customerID)
	if h, ok := args.Get(0).(*hold.Hold); ok {
		return h, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockHoldCommands) RecordSignature(ctx context.Context, holdID uuid.UUID) (*hold.Hold, error) {
	args := m.Called(ctx, holdID)
	if h, ok := args.Get(0).(*hold.Hold); ok {
		return h, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockHoldCommands) RecordPayment(ctx context.Context, holdID uuid.UUID, priceCents int64) (*booking.Booking, error) {
	args := m.Called(ctx, holdID, priceCents)
	if b, ok := args.Get(0).(*booking.Booking); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockHoldCommands) ReleaseHold(ctx context.Context, holdID uuid.UUID, reason string) error {
	return m.Called(ctx, holdID, reason).Error(0)
}
