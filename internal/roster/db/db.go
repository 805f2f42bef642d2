package db

import (
	"context"
	"database/sql"
	"errors"

	"ms-checkin/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) ListRoster(ctx context.Context, tenantID string) ([]models.MasterDataRecord, error) {
	var records []models.MasterDataRecord
	err := d.Bun.NewSelect().
		Model(&records).
		Where("tenant_id = ?", tenantID).
		Order("employee_id ASC").
		Scan(ctx)
	return records, err
}

func (d *DB) findOne(ctx context.Context, q *bun.SelectQuery, rec *models.MasterDataRecord) (*models.MasterDataRecord, error) {
	if err := q.Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func (d *DB) GetRecord(ctx context.Context, tenantID, id string) (*models.MasterDataRecord, error) {
	var rec models.MasterDataRecord
	return d.findOne(ctx, d.Bun.NewSelect().Model(&rec).Where("tenant_id = ?", tenantID).Where("id = ?", id), &rec)
}

func (d *DB) FindByEmployeeID(ctx context.Context, tenantID, employeeID string) (*models.MasterDataRecord, error) {
	var rec models.MasterDataRecord
	return d.findOne(ctx, d.Bun.NewSelect().Model(&rec).Where("tenant_id = ?", tenantID).Where("employee_id = ?", employeeID), &rec)
}

// FindByName matches the roster name exactly.
func (d *DB) FindByName(ctx context.Context, tenantID, name string) (*models.MasterDataRecord, error) {
	var rec models.MasterDataRecord
	return d.findOne(ctx, d.Bun.NewSelect().Model(&rec).Where("tenant_id = ?", tenantID).Where("name = ?", name).Order("employee_id ASC"), &rec)
}

// ExistingEmployeeIDs returns which of ids are already on the tenant roster.
func (d *DB) ExistingEmployeeIDs(ctx context.Context, tenantID string, ids []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(ids) == 0 {
		return existing, nil
	}

	var found []string
	err := d.Bun.NewSelect().
		Model((*models.MasterDataRecord)(nil)).
		Column("employee_id").
		Where("tenant_id = ?", tenantID).
		Where("employee_id IN (?)", bun.In(ids)).
		Scan(ctx, &found)
	if err != nil {
		return nil, err
	}
	for _, id := range found {
		existing[id] = true
	}
	return existing, nil
}

func (d *DB) InsertRecords(ctx context.Context, records []models.MasterDataRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := d.Bun.NewInsert().Model(&records).Exec(ctx)
	return err
}

// UpsertRecord inserts rec or overwrites name and email of the existing
// (tenant_id, employee_id) row. The stored row is scanned back into rec.
func (d *DB) UpsertRecord(ctx context.Context, rec *models.MasterDataRecord) error {
	_, err := d.Bun.NewInsert().
		Model(rec).
		On("CONFLICT (tenant_id, employee_id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("email = EXCLUDED.email").
		Returning("*").
		Exec(ctx)
	return err
}

// DeleteRecord removes the roster entry and unlinks participations that
// pointed at it.
func (d *DB) DeleteRecord(ctx context.Context, tenantID, id string) (bool, error) {
	var deleted bool
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*models.MasterDataRecord)(nil)).
			Where("tenant_id = ?", tenantID).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil || n == 0 {
			return err
		}
		deleted = true

		_, err = tx.NewUpdate().
			Model((*models.Participation)(nil)).
			Set("master_data_id = NULL").
			Where("master_data_id = ?", id).
			Exec(ctx)
		return err
	})
	return deleted, err
}
