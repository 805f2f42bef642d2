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

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

type DBLayer interface {
	CreateTenant(ctx context.Context, tenant models.Tenant) error
	GetTenantByID(ctx context.Context, id string) (*models.Tenant, error)
	GetTenantByCompanyCode(ctx context.Context, code string) (*models.Tenant, error)
	GetTenantByOwner(ctx context.Context, ownerID string) (*models.Tenant, error)
	ListTenants(ctx context.Context) ([]models.Tenant, error)
	CompanyCodeExists(ctx context.Context, code string) (bool, error)
	UpdateSMTPSettings(ctx context.Context, tenant models.Tenant) error
	DeleteTenant(ctx context.Context, id string) (bool, error)

	CreateEvent(ctx context.Context, event models.Event) error
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	GetEvent(ctx context.Context, tenantID, id string) (*models.Event, error)
	GetEventByCode(ctx context.Context, tenantID, code string) (*models.Event, error)
	FindEventsByCode(ctx context.Context, code string, limit int) ([]models.Event, error)
	ListEvents(ctx context.Context, tenantID string) ([]models.Event, error)
	EventCodeExists(ctx context.Context, tenantID, code string) (bool, error)
	UpdateEvent(ctx context.Context, event models.Event) error
	DeleteEvent(ctx context.Context, tenantID, id string) (bool, error)
}

const companyCodeAttempts = 10

var (
	ErrEventNotFound  = apperrors.NotFound("Event not found. Please check the company code and event code.")
	ErrTenantNotFound = apperrors.NotFound("Company not found. Please check the company code.")
	ErrBadPasscode    = apperrors.New(apperrors.ErrUnauthorized, "Incorrect passcode.")
	ErrEventCodeTaken = apperrors.Conflict("Event code already in use.")
)

type TenantService struct {
	DB       DBLayer
	Logger   *logger.Logger
	validate *validator.Validate
	now      func() time.Time
	hashCost int
}

func NewTenantService(db DBLayer, log *logger.Logger) *TenantService {
	return &TenantService{
		DB:       db,
		Logger:   log,
		validate: validator.New(),
		now:      time.Now,
		hashCost: bcrypt.DefaultCost,
	}
}

// SetHashCost lowers the bcrypt cost. Only tests should need it.
func (s *TenantService) SetHashCost(cost int) {
	s.hashCost = cost
}

func (s *TenantService) persistence(op string, err error) error {
	if s.Logger != nil {
		s.Logger.LogDatabase(op, "tenants", err.Error())
	}
	return apperrors.Internal(err)
}

// ---------------- RESOLUTION / STAFF LOGIN ----------------

// ResolveEvent finds the event by tenant company code and event code.
func (s *TenantService) ResolveEvent(ctx context.Context, companyCode, eventCode string) (*models.Tenant, *models.Event, error) {
	tenant, err := s.DB.GetTenantByCompanyCode(ctx, strings.TrimSpace(companyCode))
	if err != nil {
		return nil, nil, s.persistence("SELECT", err)
	}
	if tenant == nil {
		return nil, nil, ErrTenantNotFound
	}

	event, err := s.DB.GetEventByCode(ctx, tenant.ID, strings.TrimSpace(eventCode))
	if err != nil {
		return nil, nil, s.persistence("SELECT", err)
	}
	if event == nil {
		return nil, nil, ErrEventNotFound
	}
	return tenant, event, nil
}

// VerifyStaffLogin checks the event passcode and returns an unsaved session
// scoped to that one event.
func (s *TenantService) VerifyStaffLogin(ctx context.Context, companyCode, eventCode, passcode string) (*models.StaffSession, error) {
	if strings.TrimSpace(companyCode) == "" || strings.TrimSpace(eventCode) == "" || passcode == "" {
		return nil, apperrors.Validation("Company code, event code and passcode are required.")
	}

	tenant, event, err := s.ResolveEvent(ctx, companyCode, eventCode)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(event.StaffPasscodeHash), []byte(passcode)); err != nil {
		if s.Logger != nil {
			s.Logger.LogSecurity("STAFF_LOGIN_REJECTED", fmt.Sprintf("event=%s", event.ID))
		}
		return nil, ErrBadPasscode
	}

	if s.Logger != nil {
		s.Logger.LogSecurity("STAFF_LOGIN", fmt.Sprintf("event=%s tenant=%s", event.ID, tenant.ID))
	}
	return &models.StaffSession{
		EventID:    event.ID,
		EventName:  event.Name,
		TenantID:   tenant.ID,
		TenantName: tenant.Name,
	}, nil
}

// ---------------- TENANTS ----------------

// GenerateCompanyCode returns a 5-6 digit code not used by any tenant.
func (s *TenantService) GenerateCompanyCode(ctx context.Context) (string, error) {
	for i := 0; i < companyCodeAttempts; i++ {
		code := utils.GenerateCompanyCode()
		exists, err := s.DB.CompanyCodeExists(ctx, code)
		if err != nil {
			return "", s.persistence("SELECT", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", apperrors.Internal(fmt.Errorf("no free company code after %d attempts", companyCodeAttempts))
}

func (s *TenantService) CreateTenant(ctx context.Context, in models.TenantInput) (*models.Tenant, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.CompanyCode = strings.TrimSpace(in.CompanyCode)
	if err := s.validate.Struct(in); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation, "Name and owner are required; company code must be 4-16 letters or digits.")
	}

	if in.CompanyCode == "" {
		code, err := s.GenerateCompanyCode(ctx)
		if err != nil {
			return nil, err
		}
		in.CompanyCode = code
	} else {
		exists, err := s.DB.CompanyCodeExists(ctx, in.CompanyCode)
		if err != nil {
			return nil, s.persistence("SELECT", err)
		}
		if exists {
			return nil, apperrors.Conflict("Company code already in use.")
		}
	}

	now := s.now().UTC()
	tenant := models.Tenant{
		ID:          utils.NewID(),
		Name:        in.Name,
		CompanyCode: in.CompanyCode,
		OwnerID:     in.OwnerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.DB.CreateTenant(ctx, tenant); err != nil {
		return nil, s.persistence("INSERT", err)
	}
	if s.Logger != nil {
		s.Logger.Info("TENANT", fmt.Sprintf("Created tenant %s (%s)", tenant.Name, tenant.CompanyCode))
	}
	return &tenant, nil
}

func (s *TenantService) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	tenants, err := s.DB.ListTenants(ctx)
	if err != nil {
		return nil, s.persistence("SELECT", err)
	}
	return tenants, nil
}

func (s *TenantService) DeleteTenant(ctx context.Context, id string) error {
	deleted, err := s.DB.DeleteTenant(ctx, id)
	if err != nil {
		return s.persistence("DELETE", err)
	}
	if !deleted {
		return apperrors.NotFound("Tenant not found.")
	}
	if s.Logger != nil {
		s.Logger.Info("TENANT", fmt.Sprintf("Deleted tenant %s with all events, roster and participations", id))
	}
	return nil
}

// GetTenantForOwner returns the tenant administered by the identity subject.
func (s *TenantService) GetTenantForOwner(ctx context.Context, ownerID string) (*models.Tenant, error) {
	tenant, err := s.DB.GetTenantByOwner(ctx, ownerID)
	if err != nil {
		return nil, s.persistence("SELECT", err)
	}
	if tenant == nil {
		return nil, apperrors.Forbidden("No tenant is assigned to this account.")
	}
	return tenant, nil
}

func (s *TenantService) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	tenant, err := s.DB.GetTenantByID(ctx, id)
	if err != nil {
		return nil, s.persistence("SELECT", err)
	}
	if tenant == nil {
		return nil, apperrors.NotFound("Tenant not found.")
	}
	return tenant, nil
}

func (s *TenantService) UpdateSMTPSettings(ctx context.Context, tenantID string, in models.SMTPSettings) (*models.Tenant, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation, "Host, port, user, password and a valid sender address are required.")
	}
	tenant, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	tenant.SMTPHost = in.Host
	tenant.SMTPPort = in.Port
	tenant.SMTPUser = in.User
	tenant.SMTPPassword = in.Password
	tenant.SMTPFromEmail = in.FromEmail
	tenant.SMTPFromName = in.FromName
	tenant.UpdatedAt = s.now().UTC()
	if err := s.DB.UpdateSMTPSettings(ctx, *tenant); err != nil {
		return nil, s.persistence("UPDATE", err)
	}
	return tenant, nil
}

// ---------------- EVENTS ----------------

func (s *TenantService) hashPasscode(passcode string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), s.hashCost)
	if err != nil {
		return "", apperrors.Internal(err)
	}
	return string(hash), nil
}

func normalizeRules(rules []models.TicketRule) []models.TicketRule {
	out := make([]models.TicketRule, 0, len(rules))
	for _, r := range rules {
		if r.ID == "" {
			r.ID = utils.NewID()
		}
		r.Name = strings.TrimSpace(r.Name)
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			if kw = strings.TrimSpace(kw); kw != "" {
				kws = append(kws, kw)
			}
		}
		r.Keywords = kws
		out = append(out, r)
	}
	return out
}

func (s *TenantService) CreateEvent(ctx context.Context, tenantID string, in models.EventInput) (*models.Event, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.EventCode = strings.TrimSpace(in.EventCode)
	if err := s.validate.Struct(in); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation, "Event name, event code and a passcode of at least 4 characters are required.")
	}

	exists, err := s.DB.EventCodeExists(ctx, tenantID, in.EventCode)
	if err != nil {
		return nil, s.persistence("SELECT", err)
	}
	if exists {
		return nil, ErrEventCodeTaken
	}

	hash, err := s.hashPasscode(in.Passcode)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	event := models.Event{
		ID:                  utils.NewID(),
		TenantID:            tenantID,
		Name:                in.Name,
		EventCode:           in.EventCode,
		StaffPasscodeHash:   hash,
		IsPublicApplication: in.IsPublicApplication,
		TicketRules:         normalizeRules(in.TicketRules),
		EmailTemplate:       in.EmailTemplate,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.DB.CreateEvent(ctx, event); err != nil {
		return nil, s.persistence("INSERT", err)
	}
	if s.Logger != nil {
		s.Logger.Info("EVENT", fmt.Sprintf("Created event %s (%s) for tenant %s", event.Name, event.EventCode, tenantID))
	}
	return &event, nil
}

func (s *TenantService) ListEvents(ctx context.Context, tenantID string) ([]models.Event, error) {
	events, err := s.DB.ListEvents(ctx, tenantID)
	if err != nil {
		return nil, s.persistence("SELECT", err)
	}
	return events, nil
}

// GetEvent returns NOT_FOUND for events of other tenants.
func (s *TenantService) GetEvent(ctx context.Context, tenantID, eventID string) (*models.Event, error) {
	event, err := s.DB.GetEvent(ctx, tenantID, eventID)
	if err != nil {
		return nil, s.persistence("SELECT", err)
	}
	if event == nil {
		return nil, apperrors.NotFound("Event not found.")
	}
	return event, nil
}

// GetEventByID is unscoped and meant for internal lookups.
func (s *TenantService) GetEventByID(ctx context.Context, eventID string) (*models.Event, error) {
	event, err := s.DB.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, s.persistence("SELECT", err)
	}
	if event == nil {
		return nil, apperrors.NotFound("Event not found.")
	}
	return event, nil
}

func (s *TenantService) UpdateEvent(ctx context.Context, tenantID, eventID string, in models.EventUpdate) (*models.Event, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation, "Invalid event update.")
	}
	event, err := s.GetEvent(ctx, tenantID, eventID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		event.Name = strings.TrimSpace(*in.Name)
	}
	if in.IsPublicApplication != nil {
		event.IsPublicApplication = *in.IsPublicApplication
	}
	if in.TicketRules != nil {
		event.TicketRules = normalizeRules(*in.TicketRules)
	}
	if in.EmailTemplate != nil {
		event.EmailTemplate = *in.EmailTemplate
	}
	if in.Passcode != nil {
		hash, err := s.hashPasscode(*in.Passcode)
		if err != nil {
			return nil, err
		}
		event.StaffPasscodeHash = hash
	}
	event.UpdatedAt = s.now().UTC()

	if err := s.DB.UpdateEvent(ctx, *event); err != nil {
		return nil, s.persistence("UPDATE", err)
	}
	return event, nil
}

func (s *TenantService) DeleteEvent(ctx context.Context, tenantID, eventID string) error {
	deleted, err := s.DB.DeleteEvent(ctx, tenantID, eventID)
	if err != nil {
		return s.persistence("DELETE", err)
	}
	if !deleted {
		return apperrors.NotFound("Event not found.")
	}
	return nil
}

// FindEventByCode resolves the event of a public application. With a company
// code the lookup is tenant scoped; without one the event code must be unique
// across all tenants, and an ambiguous code is treated as unknown. The event
// is nil when nothing matches.
func (s *TenantService) FindEventByCode(ctx context.Context, eventCode, companyCode string) (*models.Event, error) {
	eventCode = strings.TrimSpace(eventCode)
	if companyCode = strings.TrimSpace(companyCode); companyCode != "" {
		_, event, err := s.ResolveEvent(ctx, companyCode, eventCode)
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return event, nil
	}

	events, err := s.DB.FindEventsByCode(ctx, eventCode, 2)
	if err != nil {
		return nil, s.persistence("SELECT", err)
	}
	if len(events) != 1 {
		return nil, nil
	}
	return &events[0], nil
}
