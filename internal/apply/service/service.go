package service

import (
	"context"
	"fmt"
	"strings"

	"ms-checkin/internal/apperrors"
	"ms-checkin/internal/kafka"
	"ms-checkin/internal/logger"
	mailtemplate "ms-checkin/internal/mail/template"
	"ms-checkin/internal/metrics"
	"ms-checkin/internal/models"
	"ms-checkin/internal/utils"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidEventCode = apperrors.NotFound("Invalid event code.")
	ErrInviteOnly       = apperrors.Forbidden("This event is invite only.")
	ErrNotInRoster      = apperrors.NotFound("Employee ID not found in the roster.")
	ErrAlreadyApplied   = apperrors.Conflict("Already registered.")
)

type EventDirectory interface {
	FindEventByCode(ctx context.Context, eventCode, companyCode string) (*models.Event, error)
	GetEventByID(ctx context.Context, eventID string) (*models.Event, error)
	GetTenant(ctx context.Context, id string) (*models.Tenant, error)
}

type RosterLookup interface {
	FindByEmployeeID(ctx context.Context, tenantID, employeeID string) (*models.MasterDataRecord, error)
}

type ParticipationStore interface {
	ExistsForMember(ctx context.Context, eventID, masterDataID string) (bool, error)
	Create(ctx context.Context, p *models.Participation) error
	GetByToken(ctx context.Context, token string) (*models.Participation, error)
	MarkEmailSent(ctx context.Context, ids []string) error
}

type MailQueue interface {
	Enqueue(ctx context.Context, jobs ...models.MailJob) (int, error)
}

type TicketComposer interface {
	TicketJob(kind mailtemplate.Kind, tenant *models.Tenant, event *models.Event, p *models.Participation) (models.MailJob, error)
	TicketQR(token string) (string, string, error)
}

// Result is the outcome of an application. Dropped is set for submissions
// that were silently discarded; callers answer them like a success.
type Result struct {
	Token   string
	Dropped bool
}

type ApplyService struct {
	Events         EventDirectory
	Roster         RosterLookup
	Participations ParticipationStore
	Mail           MailQueue
	Composer       TicketComposer
	Publisher      *kafka.Publisher
	Metrics        *metrics.Metrics
	Logger         *logger.Logger
	validate       *validator.Validate
}

func NewApplyService(events EventDirectory, roster RosterLookup, parts ParticipationStore, queue MailQueue, composer TicketComposer, pub *kafka.Publisher, m *metrics.Metrics, log *logger.Logger) *ApplyService {
	return &ApplyService{
		Events:         events,
		Roster:         roster,
		Participations: parts,
		Mail:           queue,
		Composer:       composer,
		Publisher:      pub,
		Metrics:        m,
		Logger:         log,
		validate:       validator.New(),
	}
}

func cleanRequest(req models.ApplicationRequest) models.ApplicationRequest {
	req.EventCode = strings.TrimSpace(req.EventCode)
	req.CompanyCode = strings.TrimSpace(req.CompanyCode)
	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	return req
}

// Apply registers a rostered employee for a public event. The checks run in a
// fixed order and the first failure is returned.
func (s *ApplyService) Apply(ctx context.Context, req models.ApplicationRequest) (*Result, error) {
	if strings.TrimSpace(req.Honeypot) != "" {
		s.Metrics.ObserveApplication("dropped")
		if s.Logger != nil {
			s.Logger.LogSecurity("APPLICATION_DROPPED", fmt.Sprintf("event_code=%s", req.EventCode))
		}
		return &Result{Dropped: true}, nil
	}

	req = cleanRequest(req)
	if err := s.validate.Struct(req); err != nil {
		return nil, s.reject("invalid", apperrors.Wrap(err, apperrors.ErrValidation, "Event code, employee ID, name and email are required."))
	}

	event, err := s.Events.FindEventByCode(ctx, req.EventCode, req.CompanyCode)
	if err != nil {
		return nil, s.reject("error", err)
	}
	if event == nil {
		return nil, s.reject("invalid", ErrInvalidEventCode)
	}
	if !event.IsPublicApplication {
		return nil, s.reject("invite_only", ErrInviteOnly)
	}

	tenant, err := s.Events.GetTenant(ctx, event.TenantID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			if s.Logger != nil {
				s.Logger.Error("APPLY", fmt.Sprintf("event %s references missing tenant %s", event.ID, event.TenantID))
			}
			err = apperrors.Internal(err)
		}
		return nil, s.reject("error", err)
	}

	member, err := s.Roster.FindByEmployeeID(ctx, tenant.ID, req.EmployeeID)
	if err != nil {
		return nil, s.reject("error", err)
	}
	if member == nil {
		return nil, s.reject("not_in_roster", ErrNotInRoster)
	}

	exists, err := s.Participations.ExistsForMember(ctx, event.ID, member.ID)
	if err != nil {
		return nil, s.reject("error", err)
	}
	if exists {
		return nil, s.reject("duplicate", ErrAlreadyApplied)
	}

	p := &models.Participation{
		ID:           utils.NewID(),
		EventID:      event.ID,
		CheckinToken: utils.NewCheckinToken(),
		MasterDataID: member.ID,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Status:       models.StatusPending,
		MasterData:   member,
	}
	if err := s.Participations.Create(ctx, p); err != nil {
		return nil, s.reject("error", err)
	}
	s.Metrics.ObserveApplication("accepted")
	if s.Logger != nil {
		s.Logger.Info("APPLY", fmt.Sprintf("participation %s registered for event %s", p.ID, event.ID))
	}

	s.sendTicket(ctx, tenant, event, p)
	_ = s.Publisher.PublishRegistered(ctx, p)

	return &Result{Token: p.CheckinToken}, nil
}

// sendTicket queues the confirmation mail. The participation is already
// stored, so failures are logged and never returned.
func (s *ApplyService) sendTicket(ctx context.Context, tenant *models.Tenant, event *models.Event, p *models.Participation) {
	job, err := s.Composer.TicketJob(mailtemplate.Application, tenant, event, p)
	if err != nil {
		if s.Logger != nil {
			s.Logger.LogMail("RENDER_FAILED", p.Email, err.Error())
		}
		return
	}
	if _, err := s.Mail.Enqueue(ctx, job); err != nil {
		return
	}
	if err := s.Participations.MarkEmailSent(ctx, []string{p.ID}); err != nil && s.Logger != nil {
		s.Logger.Warn("APPLY", fmt.Sprintf("email_sent not updated for %s: %v", p.ID, err))
	}
}

func (s *ApplyService) reject(result string, err error) error {
	s.Metrics.ObserveApplication(result)
	return err
}

// GetTicket returns the public view of a ticket, including its QR code.
func (s *ApplyService) GetTicket(ctx context.Context, token string) (*models.TicketView, error) {
	p, err := s.Participations.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	event, err := s.Events.GetEventByID(ctx, p.EventID)
	if err != nil {
		return nil, err
	}
	url, dataURI, err := s.Composer.TicketQR(p.CheckinToken)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &models.TicketView{
		Token:      p.CheckinToken,
		Name:       p.DisplayName(),
		EventName:  event.Name,
		TicketType: p.TicketType,
		StartTime:  p.StartTime,
		Status:     string(p.Status),
		CheckinURL: url,
		QRDataURI:  dataURI,
	}, nil
}
