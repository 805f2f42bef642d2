package service

import (
	"context"
	"strings"
	"time"

	"ms-checkin/internal/apperrors"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"

	"github.com/go-playground/validator/v10"
)

type DBLayer interface {
	CreateParticipation(ctx context.Context, p models.Participation) error
	CreateParticipations(ctx context.Context, ps []models.Participation) error
	GetParticipation(ctx context.Context, eventID, id string) (*models.Participation, error)
	GetByToken(ctx context.Context, token string) (*models.Participation, error)
	FindByTokenOrID(ctx context.Context, input string) (*models.Participation, error)
	FindByEventAndSecondaryCode(ctx context.Context, eventID, code string) ([]models.Participation, error)
	FindByEventAndEmployeeID(ctx context.Context, eventID, employeeID string) ([]models.Participation, error)
	ExistsForMember(ctx context.Context, eventID, masterDataID string) (bool, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.Participation, error)
	Search(ctx context.Context, eventID, query string, limit int) ([]models.Participation, error)
	UpdateParticipation(ctx context.Context, p models.Participation) error
	DeleteParticipation(ctx context.Context, eventID, id string) (bool, error)
	RecordEntry(ctx context.Context, id string, at time.Time) (*models.Participation, models.EntryType, error)
	MarkEmailSent(ctx context.Context, ids []string) error
	ListUnsent(ctx context.Context, eventID string) ([]models.Participation, error)
	EventStats(ctx context.Context, eventID string) (*models.EventStats, error)
}

const defaultSearchLimit = 20

type ParticipationService struct {
	DB       DBLayer
	Logger   *logger.Logger
	validate *validator.Validate
	now      func() time.Time
}

func NewParticipationService(db DBLayer, log *logger.Logger) *ParticipationService {
	return &ParticipationService{DB: db, Logger: log, validate: validator.New(), now: time.Now}
}

func (s *ParticipationService) persistence(op string, err error) error {
	if s.Logger != nil {
		s.Logger.LogDatabase(op, "participations", err.Error())
	}
	return apperrors.Internal(err)
}

// Create stores a new participation. Missing defaults are filled in.
func (s *ParticipationService) Create(ctx context.Context, p *models.Participation) error {
	s.fillDefaults(p, s.now().UTC())
	if err := s.DB.CreateParticipation(ctx, *p); err != nil {
		return s.persistence("INSERT", err)
	}
	return nil
}

func (s *ParticipationService) CreateBatch(ctx context.Context, ps []models.Participation) error {
	now := s.now().UTC()
	for i := range ps {
		s.fillDefaults(&ps[i], now)
	}
	if err := s.DB.CreateParticipations(ctx, ps); err != nil {
		return s.persistence("INSERT", err)
	}
	return nil
}

func (s *ParticipationService) fillDefaults(p *models.Participation, now time.Time) {
	if p.TicketType == "" {
		p.TicketType = models.DefaultTicketType
	}
	if p.Status == "" {
		p.Status = models.StatusPending
	}
	if p.ReEntryHistory == nil {
		p.ReEntryHistory = []time.Time{}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

func (s *ParticipationService) Get(ctx context.Context, eventID, id string) (*models.Participation, error) {
	p, err := s.DB.GetParticipation(ctx, eventID, id)
	if err != nil {
		return nil, s.persistence("SELECT", err)
	}
	if p == nil {
		return nil, apperrors.NotFound("Participant not found.")
	}
	return p, nil
}

func (s *ParticipationService) GetByToken(ctx context.Context, token string) (*models.Participation, error) {
	p, err := s.DB.GetByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return nil, s.persistence("SELECT", err)
	}
	if p == nil {
		return nil, apperrors.NotFound("Ticket not found.")
	}
	return p, nil
}

func (s *ParticipationService) ListByEvent(ctx context.Context, eventID string) ([]models.Participation, error) {
	ps, err := s.DB.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, s.persistence("SELECT", err)
	}
	return ps, nil
}

// Update changes admin-editable fields only. The event and check-in state of
// a participation never change here.
func (s *ParticipationService) Update(ctx context.Context, eventID, id string, in models.ParticipationUpdate) (*models.Participation, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation, "Invalid participant update.")
	}
	p, err := s.Get(ctx, eventID, id)
	if err != nil {
		return nil, err
	}

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&p.Name, in.Name)
	set(&p.Email, in.Email)
	set(&p.Phone, in.Phone)
	set(&p.SecondaryCode, in.SecondaryCode)
	set(&p.TicketType, in.TicketType)
	set(&p.StartTime, in.StartTime)
	set(&p.Note, in.Note)
	if p.TicketType == "" {
		p.TicketType = models.DefaultTicketType
	}
	p.UpdatedAt = s.now().UTC()

	if err := s.DB.UpdateParticipation(ctx, *p); err != nil {
		return nil, s.persistence("UPDATE", err)
	}
	return p, nil
}

func (s *ParticipationService) Delete(ctx context.Context, eventID, id string) error {
	deleted, err := s.DB.DeleteParticipation(ctx, eventID, id)
	if err != nil {
		return s.persistence("DELETE", err)
	}
	if !deleted {
		return apperrors.NotFound("Participant not found.")
	}
	return nil
}

// FindByTokenOrID returns nil when nothing matches.
func (s *ParticipationService) FindByTokenOrID(ctx context.Context, input string) (*models.Participation, error) {
	p, err := s.DB.FindByTokenOrID(ctx, input)
	if err != nil {
		return nil, s.persistence("SELECT", err)
	}
	return p, nil
}

func (s *ParticipationService) FindByEventAndSecondaryCode(ctx context.Context, eventID, code string) ([]models.Participation, error) {
	ps, err := s.DB.FindByEventAndSecondaryCode(ctx, eventID, code)
	if err != nil {
		return nil, s.persistence("SELECT", err)
	}
	return ps, nil
}

func (s *ParticipationService) FindByEventAndEmployeeID(ctx context.Context, eventID, employeeID string) ([]models.Participation, error) {
	ps, err := s.DB.FindByEventAndEmployeeID(ctx, eventID, employeeID)
	if err != nil {
		return nil, s.persistence("SELECT", err)
	}
	return ps, nil
}

func (s *ParticipationService) ExistsForMember(ctx context.Context, eventID, masterDataID string) (bool, error) {
	exists, err := s.DB.ExistsForMember(ctx, eventID, masterDataID)
	if err != nil {
		return false, s.persistence("SELECT", err)
	}
	return exists, nil
}

func (s *ParticipationService) Search(ctx context.Context, eventID, query string) ([]models.Participation, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.Validation("Enter a name or code to search.")
	}
	ps, err := s.DB.Search(ctx, eventID, query, defaultSearchLimit)
	if err != nil {
		return nil, s.persistence("SELECT", err)
	}
	return ps, nil
}

// RecordEntry applies one admission to the participation atomically.
func (s *ParticipationService) RecordEntry(ctx context.Context, id string) (*models.Participation, models.EntryType, error) {
	p, entry, err := s.DB.RecordEntry(ctx, id, s.now().UTC())
	if err != nil {
		return nil, "", s.persistence("UPDATE", err)
	}
	return p, entry, nil
}

func (s *ParticipationService) MarkEmailSent(ctx context.Context, ids []string) error {
	if err := s.DB.MarkEmailSent(ctx, ids); err != nil {
		return s.persistence("UPDATE", err)
	}
	return nil
}

func (s *ParticipationService) ListUnsent(ctx context.Context, eventID string) ([]models.Participation, error) {
	ps, err := s.DB.ListUnsent(ctx, eventID)
	if err != nil {
		return nil, s.persistence("SELECT", err)
	}
	return ps, nil
}

func (s *ParticipationService) EventStats(ctx context.Context, event *models.Event) (*models.EventStats, error) {
	stats, err := s.DB.EventStats(ctx, event.ID)
	if err != nil {
		return nil, s.persistence("SELECT", err)
	}
	stats.EventName = event.Name
	stats.EventCode = event.EventCode
	return stats, nil
}
