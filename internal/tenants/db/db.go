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

// Lookups return (nil, nil) when nothing matches.
func scanOne[T any](ctx context.Context, q *bun.SelectQuery, dst *T) (*T, error) {
	if err := q.Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return dst, nil
}

// ---------------- TENANTS ----------------

func (d *DB) CreateTenant(ctx context.Context, tenant models.Tenant) error {
	_, err := d.Bun.NewInsert().Model(&tenant).Exec(ctx)
	return err
}

func (d *DB) GetTenantByID(ctx context.Context, id string) (*models.Tenant, error) {
	var tenant models.Tenant
	return scanOne(ctx, d.Bun.NewSelect().Model(&tenant).Where("id = ?", id), &tenant)
}

func (d *DB) GetTenantByCompanyCode(ctx context.Context, code string) (*models.Tenant, error) {
	var tenant models.Tenant
	return scanOne(ctx, d.Bun.NewSelect().Model(&tenant).Where("company_code = ?", code), &tenant)
}

func (d *DB) GetTenantByOwner(ctx context.Context, ownerID string) (*models.Tenant, error) {
	var tenant models.Tenant
	return scanOne(ctx, d.Bun.NewSelect().Model(&tenant).Where("owner_id = ?", ownerID).Order("created_at ASC"), &tenant)
}

func (d *DB) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := d.Bun.NewSelect().Model(&tenants).Order("created_at DESC").Scan(ctx)
	return tenants, err
}

func (d *DB) CompanyCodeExists(ctx context.Context, code string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Tenant)(nil)).
		Where("company_code = ?", code).
		Exists(ctx)
}

func (d *DB) UpdateSMTPSettings(ctx context.Context, tenant models.Tenant) error {
	_, err := d.Bun.NewUpdate().
		Model(&tenant).
		Column("smtp_host", "smtp_port", "smtp_user", "smtp_password", "smtp_from_email", "smtp_from_name", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

// DeleteTenant removes the tenant and everything it owns in one transaction.
func (d *DB) DeleteTenant(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		eventIDs := tx.NewSelect().
			Model((*models.Event)(nil)).
			Column("id").
			Where("tenant_id = ?", id)

		if _, err := tx.NewDelete().Model((*models.MailJob)(nil)).Where("tenant_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*models.Participation)(nil)).Where("event_id IN (?)", eventIDs).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*models.Event)(nil)).Where("tenant_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*models.MasterDataRecord)(nil)).Where("tenant_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*models.Tenant)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = n > 0
		return nil
	})
	return deleted, err
}

// ---------------- EVENTS ----------------

func (d *DB) CreateEvent(ctx context.Context, event models.Event) error {
	_, err := d.Bun.NewInsert().Model(&event).Exec(ctx)
	return err
}

func (d *DB) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	return scanOne(ctx, d.Bun.NewSelect().Model(&event).Where("id = ?", id), &event)
}

// GetEvent returns the event only if it belongs to tenantID.
func (d *DB) GetEvent(ctx context.Context, tenantID, id string) (*models.Event, error) {
	var event models.Event
	return scanOne(ctx, d.Bun.NewSelect().Model(&event).Where("id = ?", id).Where("tenant_id = ?", tenantID), &event)
}

func (d *DB) GetEventByCode(ctx context.Context, tenantID, code string) (*models.Event, error) {
	var event models.Event
	return scanOne(ctx, d.Bun.NewSelect().Model(&event).Where("tenant_id = ?", tenantID).Where("event_code = ?", code), &event)
}

// FindEventsByCode searches every tenant. At most limit rows are returned.
func (d *DB) FindEventsByCode(ctx context.Context, code string, limit int) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Where("event_code = ?", code).
		Limit(limit).
		Scan(ctx)
	return events, err
}

func (d *DB) ListEvents(ctx context.Context, tenantID string) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Scan(ctx)
	return events, err
}

func (d *DB) EventCodeExists(ctx context.Context, tenantID, code string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		Where("tenant_id = ?", tenantID).
		Where("event_code = ?", code).
		Exists(ctx)
}

func (d *DB) UpdateEvent(ctx context.Context, event models.Event) error {
	_, err := d.Bun.NewUpdate().
		Model(&event).
		Column("name", "staff_passcode_hash", "is_public_application", "ticket_config", "email_template", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

// DeleteEvent removes the event with its participations and their mail jobs.
func (d *DB) DeleteEvent(ctx context.Context, tenantID, id string) (bool, error) {
	var deleted bool
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		partIDs := tx.NewSelect().
			Model((*models.Participation)(nil)).
			Column("id").
			Where("event_id = ?", id)

		if _, err := tx.NewDelete().Model((*models.MailJob)(nil)).Where("participation_id IN (?)", partIDs).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*models.Participation)(nil)).Where("event_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*models.Event)(nil)).Where("id = ?", id).Where("tenant_id = ?", tenantID).Exec(ctx)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			// event is not the tenant's: undo the child deletes
			return errNotOwned
		}
		deleted = true
		return nil
	})
	if errors.Is(err, errNotOwned) {
		return false, nil
	}
	return deleted, err
}

var errNotOwned = errors.New("event not owned by tenant")
