package assignment

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

var ErrNoCandidates = errors.New("no candidates after exclusions")

// Candidate is a worker as reported by the worker directory for a given
// station and time window.
type Candidate struct {
	WorkerID         uuid.UUID
	TravelMinutes    int
	Tier             int
	PerformanceScore float64
	AssignedHours    float64
	OnApprovedLeave  bool
}

type Weights struct {
	Travel      float64
	Tier        float64
	Performance float64
}

// Scored carries the computed components so the assignment record can be
// audited later.
type Scored struct {
	WorkerID         uuid.UUID
	TravelScore      float64
	TierScore        float64
	PerformanceScore float64
	Total            float64
	AssignedHours    float64
}

type Assignment struct {
	BookingID        uuid.UUID
	WorkerID         uuid.UUID
	TravelScore      float64
	TierScore        float64
	PerformanceScore float64
	TotalScore       float64
	AssignedAt       time.Time
}

// Pick scores every candidate not on approved leave and returns the winner.
// Higher total wins; ties go to the worker with the fewest assigned hours
// this period.
func Pick(candidates []Candidate, w Weights) (Scored, error) {
	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		if c.OnApprovedLeave {
			continue
		}
		scored = append(scored, score(c, w))
	}
	if len(scored) == 0 {
		return Scored{}, ErrNoCandidates
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Total != scored[j].Total {
			return scored[i].Total > scored[j].Total
		}
		return scored[i].AssignedHours < scored[j].AssignedHours
	})
	return scored[0], nil
}

func score(c Candidate, w Weights) Scored {
	// Inverse travel: a worker at the station scores 1.0, decaying with
	// every minute of travel.
	travel := 1.0 / (1.0 + float64(c.TravelMinutes))

	s := Scored{
		WorkerID:         c.WorkerID,
		TravelScore:      travel * w.Travel,
		TierScore:        float64(c.Tier) * w.Tier,
		PerformanceScore: c.PerformanceScore * w.Performance,
		AssignedHours:    c.AssignedHours,
	}
	s.Total = s.TravelScore + s.TierScore + s.PerformanceScore
	return s
}
