//go:build unit

package assignment_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chefslot/internal/domain/assignment"
)

var weights = assignment.Weights{Travel: 10, Tier: 2, Performance: 5}

func TestPick(t *testing.T) {
	t.Run("スコア最大の候補が選ばれる", func(t *testing.T) {
		near := assignment.Candidate{WorkerID: uuid.New(), TravelMinutes: 0, Tier: 2, PerformanceScore: 0.8}
		far := assignment.Candidate{WorkerID: uuid.New(), TravelMinutes: 30, Tier: 2, PerformanceScore: 0.8}

		picked, err := assignment.Pick([]assignment.Candidate{far, near}, weights)
		require.NoError(t, err)

		assert.Equal(t, near.WorkerID, picked.WorkerID)
		// travel 1/(1+0)*10, tier 2*2, performance 0.8*5
		assert.InDelta(t, 10.0, picked.TravelScore, 1e-9)
		assert.InDelta(t, 4.0, picked.TierScore, 1e-9)
		assert.InDelta(t, 4.0, picked.PerformanceScore, 1e-9)
		assert.InDelta(t, 18.0, picked.Total, 1e-9)
	})

	t.Run("approved leave excludes the candidate", func(t *testing.T) {
		best := assignment.Candidate{WorkerID: uuid.New(), TravelMinutes: 0, Tier: 5, PerformanceScore: 1.0, OnApprovedLeave: true}
		fallback := assignment.Candidate{WorkerID: uuid.New(), TravelMinutes: 20, Tier: 1, PerformanceScore: 0.5}

		picked, err := assignment.Pick([]assignment.Candidate{best, fallback}, weights)
		require.NoError(t, err)
		assert.Equal(t, fallback.WorkerID, picked.WorkerID)
	})

	t.Run("ties break toward the lighter workload", func(t *testing.T) {
		busy := assignment.Candidate{WorkerID: uuid.New(), TravelMinutes: 10, Tier: 3, PerformanceScore: 0.9, AssignedHours: 24}
		idle := assignment.Candidate{WorkerID: uuid.New(), TravelMinutes: 10, Tier: 3, PerformanceScore: 0.9, AssignedHours: 6}

		picked, err := assignment.Pick([]assignment.Candidate{busy, idle}, weights)
		require.NoError(t, err)
		assert.Equal(t, idle.WorkerID, picked.WorkerID)
	})

	t.Run("no candidates after exclusions", func(t *testing.T) {
		_, err := assignment.Pick([]assignment.Candidate{
			{WorkerID: uuid.New(), OnApprovedLeave: true},
		}, weights)
		assert.ErrorIs(t, err, assignment.ErrNoCandidates)

		_, err = assignment.Pick(nil, weights)
		assert.ErrorIs(t, err, assignment.ErrNoCandidates)
	})
}
