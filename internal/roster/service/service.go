package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ms-checkin/internal/apperrors"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
	"ms-checkin/internal/utils"
)

type DBLayer interface {
	ListRoster(ctx context.Context, tenantID string) ([]models.MasterDataRecord, error)
	GetRecord(ctx context.Context, tenantID, id string) (*models.MasterDataRecord, error)
	FindByEmployeeID(ctx context.Context, tenantID, employeeID string) (*models.MasterDataRecord, error)
	FindByName(ctx context.Context, tenantID, name string) (*models.MasterDataRecord, error)
	ExistingEmployeeIDs(ctx context.Context, tenantID string, ids []string) (map[string]bool, error)
	InsertRecords(ctx context.Context, records []models.MasterDataRecord) error
	UpsertRecord(ctx context.Context, rec *models.MasterDataRecord) error
	DeleteRecord(ctx context.Context, tenantID, id string) (bool, error)
}

type RosterService struct {
	DB     DBLayer
	Logger *logger.Logger
	now    func() time.Time
}

func NewRosterService(db DBLayer, log *logger.Logger) *RosterService {
	return &RosterService{DB: db, Logger: log, now: time.Now}
}

func (s *RosterService) persistence(op string, err error) error {
	if s.Logger != nil {
		s.Logger.LogDatabase(op, "master_data", err.Error())
	}
	return apperrors.Internal(err)
}

func cleanRow(row models.RosterRow) models.RosterRow {
	return models.RosterRow{
		EmployeeID: strings.TrimSpace(row.EmployeeID),
		Name:       strings.TrimSpace(row.Name),
		Email:      strings.TrimSpace(row.Email),
	}
}

func (s *RosterService) List(ctx context.Context, tenantID string) ([]models.MasterDataRecord, error) {
	records, err := s.DB.ListRoster(ctx, tenantID)
	if err != nil {
		return nil, s.persistence("SELECT", err)
	}
	return records, nil
}

// Add creates one roster entry or overwrites the name and email of the entry
// with the same employee id.
func (s *RosterService) Add(ctx context.Context, tenantID string, row models.RosterRow) (*models.MasterDataRecord, error) {
	row = cleanRow(row)
	if row.EmployeeID == "" || row.Name == "" {
		return nil, apperrors.Validation("Employee ID and name are required.")
	}

	rec := &models.MasterDataRecord{
		ID:         utils.NewID(),
		TenantID:   tenantID,
		EmployeeID: row.EmployeeID,
		Name:       row.Name,
		Email:      row.Email,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.DB.UpsertRecord(ctx, rec); err != nil {
		return nil, s.persistence("UPSERT", err)
	}
	return rec, nil
}

// Import inserts only employee ids the tenant does not have yet. Existing
// entries are never overwritten, and rows without id or name are skipped.
func (s *RosterService) Import(ctx context.Context, tenantID string, rows []models.RosterRow) (*models.RosterImportResult, error) {
	result := &models.RosterImportResult{}

	seen := make(map[string]bool, len(rows))
	candidates := make([]models.RosterRow, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		row = cleanRow(row)
		if row.EmployeeID == "" || row.Name == "" || seen[row.EmployeeID] {
			result.Skipped++
			continue
		}
		seen[row.EmployeeID] = true
		candidates = append(candidates, row)
		ids = append(ids, row.EmployeeID)
	}
	if len(candidates) == 0 {
		return result, nil
	}

	existing, err := s.DB.ExistingEmployeeIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, s.persistence("SELECT", err)
	}

	now := s.now().UTC()
	records := make([]models.MasterDataRecord, 0, len(candidates))
	for _, row := range candidates {
		if existing[row.EmployeeID] {
			result.Skipped++
			continue
		}
		records = append(records, models.MasterDataRecord{
			ID:         utils.NewID(),
			TenantID:   tenantID,
			EmployeeID: row.EmployeeID,
			Name:       row.Name,
			Email:      row.Email,
			CreatedAt:  now,
		})
	}

	if err := s.DB.InsertRecords(ctx, records); err != nil {
		return nil, s.persistence("INSERT", err)
	}
	result.Inserted = len(records)

	if s.Logger != nil {
		s.Logger.Info("ROSTER", fmt.Sprintf("Tenant %s roster import: %d inserted, %d skipped", tenantID, result.Inserted, result.Skipped))
	}
	return result, nil
}

func (s *RosterService) Delete(ctx context.Context, tenantID, id string) error {
	deleted, err := s.DB.DeleteRecord(ctx, tenantID, id)
	if err != nil {
		return s.persistence("DELETE", err)
	}
	if !deleted {
		return apperrors.NotFound("Roster entry not found.")
	}
	return nil
}

// FindByEmployeeID returns nil when the id is not on the roster.
func (s *RosterService) FindByEmployeeID(ctx context.Context, tenantID, employeeID string) (*models.MasterDataRecord, error) {
	rec, err := s.DB.FindByEmployeeID(ctx, tenantID, strings.TrimSpace(employeeID))
	if err != nil {
		return nil, s.persistence("SELECT", err)
	}
	return rec, nil
}

// Match links an import row to a roster member: by explicit master data id,
// then by employee id, then by exact name. It returns nil for guests.
func (s *RosterService) Match(ctx context.Context, tenantID string, row models.ImportRow) (*models.MasterDataRecord, error) {
	var (
		rec *models.MasterDataRecord
		err error
	)
	if id := strings.TrimSpace(row.MasterDataID); id != "" {
		if rec, err = s.DB.GetRecord(ctx, tenantID, id); err != nil || rec != nil {
			return rec, s.wrapLookup(err)
		}
	}
	if id := strings.TrimSpace(row.EmployeeID); id != "" {
		if rec, err = s.DB.FindByEmployeeID(ctx, tenantID, id); err != nil || rec != nil {
			return rec, s.wrapLookup(err)
		}
	}
	if name := strings.TrimSpace(row.Name); name != "" {
		rec, err = s.DB.FindByName(ctx, tenantID, name)
		return rec, s.wrapLookup(err)
	}
	return nil, nil
}

func (s *RosterService) wrapLookup(err error) error {
	if err == nil {
		return nil
	}
	return s.persistence("SELECT", err)
}
