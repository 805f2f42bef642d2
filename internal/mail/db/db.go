package db

import (
	"context"

	"ms-checkin/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) InsertMailJobs(ctx context.Context, jobs []models.MailJob) error {
	if len(jobs) == 0 {
		return nil
	}
	_, err := d.Bun.NewInsert().Model(&jobs).Exec(ctx)
	return err
}

// ListMailJobs returns the tenant's jobs, newest first. An empty status lists all.
func (d *DB) ListMailJobs(ctx context.Context, tenantID string, status models.MailJobStatus, limit int) ([]models.MailJob, error) {
	var jobs []models.MailJob
	q := d.Bun.NewSelect().
		Model(&jobs).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return jobs, nil
}
