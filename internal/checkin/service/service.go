package service

import (
	"context"
	"fmt"
	"time"

	"ms-checkin/internal/apperrors"
	"ms-checkin/internal/kafka"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/metrics"
	"ms-checkin/internal/models"
	"ms-checkin/internal/sse"
)

var (
	ErrEmptyInput     = apperrors.Validation("Scan a QR code or enter a code.")
	ErrTicketNotFound = apperrors.NotFound("Ticket not found. Please check the QR code or ID.")
	ErrNoSession      = apperrors.New(apperrors.ErrUnauthorized, "Session expired. Please log in again.")
)

type ParticipationStore interface {
	FindByTokenOrID(ctx context.Context, input string) (*models.Participation, error)
	FindByEventAndSecondaryCode(ctx context.Context, eventID, code string) ([]models.Participation, error)
	FindByEventAndEmployeeID(ctx context.Context, eventID, employeeID string) ([]models.Participation, error)
	RecordEntry(ctx context.Context, id string) (*models.Participation, models.EntryType, error)
	Search(ctx context.Context, eventID, query string) ([]models.Participation, error)
}

type EventLookup interface {
	GetEventByID(ctx context.Context, eventID string) (*models.Event, error)
}

// CheckinService resolves scanned input to a participation and records the
// entry. Every call is scoped to the event of the staff session passed in.
type CheckinService struct {
	Participations ParticipationStore
	Events         EventLookup
	Publisher      *kafka.Publisher
	Emitter        *sse.CheckinEventEmitter
	Metrics        *metrics.Metrics
	Logger         *logger.Logger
}

func NewCheckinService(parts ParticipationStore, events EventLookup, pub *kafka.Publisher, emitter *sse.CheckinEventEmitter, m *metrics.Metrics, log *logger.Logger) *CheckinService {
	return &CheckinService{
		Participations: parts,
		Events:         events,
		Publisher:      pub,
		Emitter:        emitter,
		Metrics:        m,
		Logger:         log,
	}
}

// Resolve finds the participation for input. A token or id matches across
// all events; secondary codes and employee ids only within eventID.
func (s *CheckinService) Resolve(ctx context.Context, eventID, input string) (*models.Participation, error) {
	p, err := s.Participations.FindByTokenOrID(ctx, input)
	if err != nil || p != nil {
		return p, err
	}

	byCode, err := s.Participations.FindByEventAndSecondaryCode(ctx, eventID, input)
	if err != nil {
		return nil, err
	}
	if p := pick(byCode); p != nil {
		return p, nil
	}

	byEmployee, err := s.Participations.FindByEventAndEmployeeID(ctx, eventID, input)
	if err != nil {
		return nil, err
	}
	return pick(byEmployee), nil
}

// pick prefers a pending participation, then any not yet admitted, else the
// first.
func pick(ps []models.Participation) *models.Participation {
	if len(ps) == 0 {
		return nil
	}
	for i := range ps {
		if ps[i].Status == models.StatusPending {
			return &ps[i]
		}
	}
	for i := range ps {
		if ps[i].Status != models.StatusCheckedIn {
			return &ps[i]
		}
	}
	return &ps[0]
}

// CheckIn admits the attendee identified by raw into the session's event.
func (s *CheckinService) CheckIn(ctx context.Context, raw string, sess *models.StaffSession) (*models.CheckinResult, error) {
	if sess == nil || sess.EventID == "" {
		return nil, ErrNoSession
	}
	input := NormalizeInput(raw)
	if input == "" {
		s.Metrics.ObserveCheckin("invalid", "")
		return nil, ErrEmptyInput
	}

	p, err := s.Resolve(ctx, sess.EventID, input)
	if err != nil {
		s.Metrics.ObserveCheckin("error", "")
		return nil, err
	}
	if p == nil {
		s.Metrics.ObserveCheckin("not_found", "")
		if s.Logger != nil {
			s.Logger.LogCheckin("NOT_FOUND", "-", fmt.Sprintf("event=%s input=%q", sess.EventID, input))
		}
		return nil, ErrTicketNotFound
	}

	if p.EventID != sess.EventID {
		s.Metrics.ObserveCheckin("event_mismatch", "")
		if s.Logger != nil {
			s.Logger.LogCheckin("EVENT_MISMATCH", p.ID, fmt.Sprintf("ticket event=%s session event=%s", p.EventID, sess.EventID))
		}
		return nil, s.mismatch(ctx, p.EventID)
	}

	updated, entry, err := s.Participations.RecordEntry(ctx, p.ID)
	if err != nil {
		s.Metrics.ObserveCheckin("error", "")
		return nil, err
	}
	if updated.MasterData == nil {
		updated.MasterData = p.MasterData
	}

	s.Metrics.ObserveCheckin("success", string(entry))
	if s.Logger != nil {
		s.Logger.LogCheckin(string(entry), updated.ID, fmt.Sprintf("event=%s", sess.EventID))
	}

	name := updated.DisplayName()
	at := time.Now().UTC()
	if entry == models.EntryFirst && updated.CheckedInAt != nil {
		at = *updated.CheckedInAt
	} else if n := len(updated.ReEntryHistory); n > 0 {
		at = updated.ReEntryHistory[n-1]
	}
	event := models.CheckinEvent{
		ParticipationID: updated.ID,
		EventID:         updated.EventID,
		Name:            name,
		TicketType:      updated.TicketType,
		EntryType:       entry,
		At:              at,
	}
	s.Emitter.Emit(updated.EventID, event)
	_ = s.Publisher.PublishCheckedIn(ctx, event)

	message := "Check-in complete."
	if entry == models.EntryReEntry {
		message = "Re-entry recorded."
	}
	return &models.CheckinResult{
		Success: true,
		Message: message,
		Participant: &models.CheckinParticipant{
			Name:       name,
			TicketType: updated.TicketType,
			StartTime:  updated.StartTime,
			EntryType:  entry,
		},
	}, nil
}

func (s *CheckinService) mismatch(ctx context.Context, eventID string) error {
	name := "another event"
	if ev, err := s.Events.GetEventByID(ctx, eventID); err == nil && ev != nil {
		name = fmt.Sprintf("%q", ev.Name)
	}
	return apperrors.New(apperrors.ErrEventMismatch, fmt.Sprintf("This ticket is for %s, not this event.", name))
}

// Search lists participations of the session's event matching query by name,
// email or code.
func (s *CheckinService) Search(ctx context.Context, sess *models.StaffSession, query string) ([]models.Participation, error) {
	if sess == nil || sess.EventID == "" {
		return nil, ErrNoSession
	}
	return s.Participations.Search(ctx, sess.EventID, query)
}
