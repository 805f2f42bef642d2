package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"ms-checkin/internal/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) selectWithRoster(dst interface{}) *bun.SelectQuery {
	return d.Bun.NewSelect().Model(dst).Relation("MasterData")
}

func (d *DB) findOne(ctx context.Context, q *bun.SelectQuery, p *models.Participation) (*models.Participation, error) {
	if err := q.Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (d *DB) CreateParticipation(ctx context.Context, p models.Participation) error {
	_, err := d.Bun.NewInsert().Model(&p).Exec(ctx)
	return err
}

func (d *DB) CreateParticipations(ctx context.Context, ps []models.Participation) error {
	if len(ps) == 0 {
		return nil
	}
	_, err := d.Bun.NewInsert().Model(&ps).Exec(ctx)
	return err
}

func (d *DB) GetParticipation(ctx context.Context, eventID, id string) (*models.Participation, error) {
	var p models.Participation
	return d.findOne(ctx, d.selectWithRoster(&p).Where("p.id = ?", id).Where("p.event_id = ?", eventID), &p)
}

func (d *DB) GetByToken(ctx context.Context, token string) (*models.Participation, error) {
	var p models.Participation
	return d.findOne(ctx, d.selectWithRoster(&p).Where("p.checkin_token = ?", token), &p)
}

// FindByTokenOrID is deliberately not scoped to an event.
func (d *DB) FindByTokenOrID(ctx context.Context, input string) (*models.Participation, error) {
	var p models.Participation
	q := d.selectWithRoster(&p).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("p.checkin_token = ?", input).WhereOr("p.id = ?", input)
		})
	return d.findOne(ctx, q, &p)
}

func (d *DB) FindByEventAndSecondaryCode(ctx context.Context, eventID, code string) ([]models.Participation, error) {
	var ps []models.Participation
	err := d.selectWithRoster(&ps).
		Where("p.event_id = ?", eventID).
		Where("p.secondary_code = ?", code).
		Order("p.created_at ASC").
		Scan(ctx)
	return ps, err
}

func (d *DB) FindByEventAndEmployeeID(ctx context.Context, eventID, employeeID string) ([]models.Participation, error) {
	var ps []models.Participation
	err := d.selectWithRoster(&ps).
		Where("p.event_id = ?", eventID).
		Where("master_data.employee_id = ?", employeeID).
		Order("p.created_at ASC").
		Scan(ctx)
	return ps, err
}

func (d *DB) ExistsForMember(ctx context.Context, eventID, masterDataID string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Participation)(nil)).
		Where("event_id = ?", eventID).
		Where("master_data_id = ?", masterDataID).
		Exists(ctx)
}

func (d *DB) ListByEvent(ctx context.Context, eventID string) ([]models.Participation, error) {
	var ps []models.Participation
	err := d.selectWithRoster(&ps).
		Where("p.event_id = ?", eventID).
		Order("p.created_at DESC").
		Scan(ctx)
	return ps, err
}

// Search matches name, email, secondary code and roster fields by substring.
func (d *DB) Search(ctx context.Context, eventID, query string, limit int) ([]models.Participation, error) {
	like := "%" + strings.ToLower(query) + "%"
	var ps []models.Participation
	err := d.selectWithRoster(&ps).
		Where("p.event_id = ?", eventID).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(p.name) LIKE ?", like).
				WhereOr("LOWER(p.email) LIKE ?", like).
				WhereOr("LOWER(p.secondary_code) LIKE ?", like).
				WhereOr("LOWER(master_data.name) LIKE ?", like).
				WhereOr("LOWER(master_data.employee_id) LIKE ?", like)
		}).
		Order("p.name ASC").
		Limit(limit).
		Scan(ctx)
	return ps, err
}

func (d *DB) UpdateParticipation(ctx context.Context, p models.Participation) error {
	_, err := d.Bun.NewUpdate().
		Model(&p).
		Column("name", "email", "phone", "secondary_code", "ticket_type", "start_time", "note", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

func (d *DB) DeleteParticipation(ctx context.Context, eventID, id string) (bool, error) {
	var deleted bool
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*models.Participation)(nil)).
			Where("id = ?", id).
			Where("event_id = ?", eventID).
			Exec(ctx)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil || n == 0 {
			return err
		}
		deleted = true
		_, err = tx.NewDelete().Model((*models.MailJob)(nil)).Where("participation_id = ?", id).Exec(ctx)
		return err
	})
	return deleted, err
}

// RecordEntry moves the participation to checked_in. The first entry sets
// checked_in_at, every later one appends to re_entry_history. The row is
// locked on PostgreSQL and the first-entry write only applies while
// checked_in_at is still NULL, so concurrent scans yield exactly one first
// entry.
func (d *DB) RecordEntry(ctx context.Context, id string, at time.Time) (*models.Participation, models.EntryType, error) {
	var (
		p     models.Participation
		entry models.EntryType
	)

	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for attempt := 0; attempt < 2; attempt++ {
			p = models.Participation{}
			q := tx.NewSelect().Model(&p).Where("id = ?", id)
			if tx.Dialect().Name() == dialect.PG {
				q = q.For("UPDATE")
			}
			if err := q.Scan(ctx); err != nil {
				return err
			}

			p.Status = models.StatusCheckedIn
			p.UpdatedAt = at

			if p.CheckedInAt == nil {
				p.CheckedInAt = &at
				res, err := tx.NewUpdate().
					Model(&p).
					Column("status", "checked_in_at", "updated_at").
					WherePK().
					Where("checked_in_at IS NULL").
					Exec(ctx)
				if err != nil {
					return err
				}
				n, err := res.RowsAffected()
				if err != nil {
					return err
				}
				if n == 1 {
					entry = models.EntryFirst
					return nil
				}
				// another scan won the first entry; record ours as a re-entry
				continue
			}

			p.ReEntryHistory = append(p.ReEntryHistory, at)
			if _, err := tx.NewUpdate().
				Model(&p).
				Column("status", "re_entry_history", "updated_at").
				WherePK().
				Exec(ctx); err != nil {
				return err
			}
			entry = models.EntryReEntry
			return nil
		}
		return errors.New("check-in state changed concurrently")
	})
	if err != nil {
		return nil, "", err
	}
	return &p, entry, nil
}

func (d *DB) MarkEmailSent(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := d.Bun.NewUpdate().
		Model((*models.Participation)(nil)).
		Set("email_sent = ?", true).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	return err
}

// ListUnsent returns participations with an address whose ticket mail has
// not been queued yet.
func (d *DB) ListUnsent(ctx context.Context, eventID string) ([]models.Participation, error) {
	var ps []models.Participation
	err := d.selectWithRoster(&ps).
		Where("p.event_id = ?", eventID).
		Where("p.email_sent = ?", false).
		Where("p.email IS NOT NULL").
		Where("p.email <> ''").
		Order("p.created_at ASC").
		Scan(ctx)
	return ps, err
}

type statusCount struct {
	Status models.ParticipationStatus `bun:"status"`
	Count  int                        `bun:"count"`
}

func (d *DB) EventStats(ctx context.Context, eventID string) (*models.EventStats, error) {
	var counts []statusCount
	err := d.Bun.NewSelect().
		Model((*models.Participation)(nil)).
		Column("status").
		ColumnExpr("COUNT(*) AS count").
		Where("event_id = ?", eventID).
		Group("status").
		Scan(ctx, &counts)
	if err != nil {
		return nil, err
	}

	stats := &models.EventStats{EventID: eventID}
	for _, c := range counts {
		stats.Total += c.Count
		switch c.Status {
		case models.StatusPending:
			stats.Pending = c.Count
		case models.StatusApproved:
			stats.Approved = c.Count
		case models.StatusCheckedIn:
			stats.CheckedIn = c.Count
		}
	}

	stats.EmailsSent, err = d.Bun.NewSelect().
		Model((*models.Participation)(nil)).
		Where("event_id = ?", eventID).
		Where("email_sent = ?", true).
		Count(ctx)
	if err != nil {
		return nil, err
	}

	var entered []models.Participation
	err = d.Bun.NewSelect().
		Model(&entered).
		Column("id", "re_entry_history").
		Where("event_id = ?", eventID).
		Where("checked_in_at IS NOT NULL").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range entered {
		stats.ReEntries += len(p.ReEntryHistory)
	}
	return stats, nil
}
