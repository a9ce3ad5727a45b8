package repository

import (
	"context"
	"time"

	"chefslot/internal/infra"
	"chefslot/internal/infra/db"
)

// NotificationRepository persists outbound notifications as jobs for the
// delivery service to pick up. Writing the row is transactional with the
// hold mutation; delivery itself is someone else's problem.
type NotificationRepository struct{}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{}
}

func (r *NotificationRepository) CreateJob(ctx context.Context, tx db.DBTX, kind, topic string, payload []byte, runAt time.Time) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO notification_jobs (kind, topic, payload, run_at, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, 'pending', 0, now())
	`, kind, topic, payload, runAt)
	if err != nil {
		return infra.WrapRepoErr("failed to create notification job", err)
	}
	return nil
}
