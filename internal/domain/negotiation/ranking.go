package negotiation

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"chefslot/internal/domain/hold"
)

// RankedSlot pairs a candidate slot with its distance from the request.
type RankedSlot struct {
	Key   hold.SlotKey
	Score float64
}

const (
	dayPenalty    = 10.0 // one calendar day off the requested date
	minutePenalty = 0.05 // one minute off the requested time slot
	travelPenalty = 0.5  // one predicted travel minute to a sibling station
)

// RankAlternatives orders candidate slots by proximity to the requested
// date/time and by predicted travel cost to the candidate's station.
// travelMinutes maps station id to predicted minutes; the requested
// station is distance zero. Lower score ranks first.
func RankAlternatives(requested hold.SlotKey, candidates []hold.SlotKey, travelMinutes map[uuid.UUID]int, limit int) []RankedSlot {
	ranked := make([]RankedSlot, 0, len(candidates))
	for _, c := range candidates {
		if c.Equal(requested) {
			continue
		}
		ranked = append(ranked, RankedSlot{Key: c, Score: scoreCandidate(requested, c, travelMinutes)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score < ranked[j].Score
		}
		// Deterministic order for equal scores.
		return ranked[i].Key.String() < ranked[j].Key.String()
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func scoreCandidate(requested, candidate hold.SlotKey, travelMinutes map[uuid.UUID]int) float64 {
	days := math.Abs(candidate.Date().Sub(requested.Date()).Hours() / 24)

	score := days * dayPenalty
	score += math.Abs(float64(slotMinutes(candidate.TimeSlot())-slotMinutes(requested.TimeSlot()))) * minutePenalty

	if candidate.StationID() != requested.StationID() {
		if m, ok := travelMinutes[candidate.StationID()]; ok {
			score += float64(m) * travelPenalty
		} else {
			// Unknown stations rank behind everything with a known distance.
			score += 1000
		}
	}
	return score
}

func slotMinutes(slot string) int {
	t, err := time.Parse("15:04", slot)
	if err != nil {
		return 0
	}
	return t.Hour()*60 + t.Minute()
}
