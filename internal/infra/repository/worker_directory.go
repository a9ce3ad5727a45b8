package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"chefslot/internal/domain/assignment"
	"chefslot/internal/domain/hold"
	"chefslot/internal/infra"
	"chefslot/internal/infra/db"
)

// WorkerDirectoryRepository realizes the worker directory collaborator as
// local tables: workers, worker_time_off, and the assignment history used
// for load balancing.
type WorkerDirectoryRepository struct{}

func NewWorkerDirectoryRepository() *WorkerDirectoryRepository {
	return &WorkerDirectoryRepository{}
}

// ListAvailable returns every worker of the station with travel, tier,
// performance, current-period assigned hours, and whether an approved
// time-off record overlaps the slot date. Exclusion itself happens in the
// scorer so it stays testable.
func (r *WorkerDirectoryRepository) ListAvailable(ctx context.Context, q db.DBTX, key hold.SlotKey) ([]assignment.Candidate, error) {
	periodStart := time.Date(key.Date().Year(), key.Date().Month(), 1, 0, 0, 0, 0, time.UTC)

	rows, err := q.Query(ctx, `
		SELECT
			w.id,
			w.travel_minutes,
			w.tier,
			w.performance_score,
			COALESCE((
				SELECT SUM(wa.hours)
				FROM worker_assignments wa
				WHERE wa.worker_id = w.id AND wa.assigned_at >= $2
			), 0) AS assigned_hours,
			EXISTS (
				SELECT 1
				FROM worker_time_off wto
				WHERE wto.worker_id = w.id
				  AND wto.approved
				  AND $3 BETWEEN wto.start_date AND wto.end_date
			) AS on_approved_leave
		FROM workers w
		WHERE w.station_id = $1 AND w.active
	`, key.StationID(), periodStart, key.Date())
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list workers", err)
	}
	defer rows.Close()

	var candidates []assignment.Candidate
	for rows.Next() {
		var c assignment.Candidate
		if err := rows.Scan(
			&c.WorkerID, &c.TravelMinutes, &c.Tier,
			&c.PerformanceScore, &c.AssignedHours, &c.OnApprovedLeave,
		); err != nil {
			return nil, infra.WrapRepoErr("failed to scan worker candidate", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("worker iteration failed", err)
	}
	return candidates, nil
}

type AssignmentRepository struct{}

func NewAssignmentRepository() *AssignmentRepository {
	return &AssignmentRepository{}
}

// Upsert records the assignment; re-running the optimizer for a booking
// replaces the previous pick.
func (r *AssignmentRepository) Upsert(ctx context.Context, tx db.DBTX, a assignment.Assignment, hours float64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO worker_assignments (
			booking_id, worker_id, travel_score, tier_score,
			performance_score, total_score, hours, assigned_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (booking_id) DO UPDATE SET
			worker_id = EXCLUDED.worker_id,
			travel_score = EXCLUDED.travel_score,
			tier_score = EXCLUDED.tier_score,
			performance_score = EXCLUDED.performance_score,
			total_score = EXCLUDED.total_score,
			hours = EXCLUDED.hours,
			assigned_at = EXCLUDED.assigned_at
	`,
		a.BookingID, a.WorkerID, a.TravelScore, a.TierScore,
		a.PerformanceScore, a.TotalScore, hours, a.AssignedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return infra.WrapRepoErr("booking or worker missing for assignment", err, infra.KindForeignKeyViolated)
		}
		return infra.WrapRepoErr("failed to upsert worker assignment", err)
	}
	return nil
}

type StationRoute struct {
	StationID     uuid.UUID
	TravelMinutes int
}

type StationRepository struct{}

func NewStationRepository() *StationRepository {
	return &StationRepository{}
}

// FindRoutes returns the service-area sibling stations reachable from the
// origin, with predicted travel minutes. Used for ranking alternatives.
func (r *StationRepository) FindRoutes(ctx context.Context, q db.DBTX, originID uuid.UUID) ([]StationRoute, error) {
	rows, err := q.Query(ctx, `
		SELECT dest_station_id, travel_minutes
		FROM station_routes
		WHERE origin_station_id = $1
		ORDER BY travel_minutes
	`, originID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query station routes", err)
	}
	defer rows.Close()

	var routes []StationRoute
	for rows.Next() {
		var route StationRoute
		if err := rows.Scan(&route.StationID, &route.TravelMinutes); err != nil {
			return nil, infra.WrapRepoErr("failed to scan station route", err)
		}
		routes = append(routes, route)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("station route iteration failed", err)
	}
	return routes, nil
}
