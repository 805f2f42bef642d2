package imports

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"ms-checkin/internal/apperrors"
	"ms-checkin/internal/kafka"
	"ms-checkin/internal/logger"
	mailtemplate "ms-checkin/internal/mail/template"
	"ms-checkin/internal/metrics"
	"ms-checkin/internal/models"
	"ms-checkin/internal/utils"

	"golang.org/x/sync/errgroup"
)

const defaultRenderWorkers = 8

type EventDirectory interface {
	GetEvent(ctx context.Context, tenantID, eventID string) (*models.Event, error)
	GetTenant(ctx context.Context, id string) (*models.Tenant, error)
}

type RosterMatcher interface {
	Match(ctx context.Context, tenantID string, row models.ImportRow) (*models.MasterDataRecord, error)
}

type ParticipationStore interface {
	ListByEvent(ctx context.Context, eventID string) ([]models.Participation, error)
	CreateBatch(ctx context.Context, ps []models.Participation) error
	MarkEmailSent(ctx context.Context, ids []string) error
	ListUnsent(ctx context.Context, eventID string) ([]models.Participation, error)
}

type MailQueue interface {
	Enqueue(ctx context.Context, jobs ...models.MailJob) (int, error)
}

type TicketComposer interface {
	TicketJob(kind mailtemplate.Kind, tenant *models.Tenant, event *models.Event, p *models.Participation) (models.MailJob, error)
}

type ImportService struct {
	Events         EventDirectory
	Roster         RosterMatcher
	Participations ParticipationStore
	Mail           MailQueue
	Composer       TicketComposer
	Publisher      *kafka.Publisher
	Metrics        *metrics.Metrics
	Logger         *logger.Logger
	RenderWorkers  int
}

func NewImportService(events EventDirectory, roster RosterMatcher, parts ParticipationStore, queue MailQueue, composer TicketComposer, pub *kafka.Publisher, m *metrics.Metrics, log *logger.Logger) *ImportService {
	return &ImportService{
		Events:         events,
		Roster:         roster,
		Participations: parts,
		Mail:           queue,
		Composer:       composer,
		Publisher:      pub,
		Metrics:        m,
		Logger:         log,
		RenderWorkers:  defaultRenderWorkers,
	}
}

// planned is one input row after roster matching and rule evaluation.
type planned struct {
	row        models.ImportRow
	member     *models.MasterDataRecord
	ticketType string
	startTime  string
	valid      bool
	duplicate  bool
	sameName   bool // flagged in the preview only
}

// existingKeys indexes the identities already registered for an event.
type existingKeys struct {
	members map[string]bool
	codes   map[string]bool
	names   map[string]bool
}

func indexExisting(ps []models.Participation) existingKeys {
	k := existingKeys{members: map[string]bool{}, codes: map[string]bool{}, names: map[string]bool{}}
	for i := range ps {
		if ps[i].MasterDataID != "" {
			k.members[ps[i].MasterDataID] = true
		}
		if ps[i].SecondaryCode != "" {
			k.codes[ps[i].SecondaryCode] = true
		}
		if ps[i].Name != "" {
			k.names[ps[i].Name] = true
		}
	}
	return k
}

// has reports whether the row is already registered, by roster member or by
// order/employee code. Names repeat legitimately and are not an identity.
func (k existingKeys) has(p planned) bool {
	if p.member != nil && k.members[p.member.ID] {
		return true
	}
	code := secondaryCode(p)
	return code != "" && k.codes[code]
}

func secondaryCode(p planned) string {
	if p.row.OrderID != "" {
		return p.row.OrderID
	}
	if p.member != nil {
		return p.member.EmployeeID
	}
	return p.row.EmployeeID
}

func cleanImportRow(row models.ImportRow) models.ImportRow {
	row.Name = strings.TrimSpace(row.Name)
	row.Email = strings.TrimSpace(row.Email)
	row.OrderID = strings.TrimSpace(row.OrderID)
	row.EmployeeID = strings.TrimSpace(row.EmployeeID)
	row.TicketType = strings.TrimSpace(row.TicketType)
	row.StartTime = strings.TrimSpace(row.StartTime)
	row.ProductName = strings.TrimSpace(row.ProductName)
	row.Price = strings.TrimSpace(row.Price)
	row.MasterDataID = strings.TrimSpace(row.MasterDataID)
	if row.Quantity < 1 {
		row.Quantity = 1
	}
	if row.Quantity > maxQuantity {
		row.Quantity = maxQuantity
	}
	return row
}

func (s *ImportService) loadEvent(ctx context.Context, tenantID, eventID string) (*models.Event, *models.Tenant, error) {
	event, err := s.Events.GetEvent(ctx, tenantID, eventID)
	if err != nil {
		return nil, nil, err
	}
	tenant, err := s.Events.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	return event, tenant, nil
}

func (s *ImportService) plan(ctx context.Context, tenantID string, event *models.Event, rows []models.ImportRow) ([]planned, error) {
	existing, err := s.Participations.ListByEvent(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	keys := indexExisting(existing)

	out := make([]planned, 0, len(rows))
	for _, row := range rows {
		p := planned{row: cleanImportRow(row)}

		member, err := s.Roster.Match(ctx, tenantID, p.row)
		if err != nil {
			return nil, err
		}
		p.member = member
		if member != nil && p.row.Email == "" {
			p.row.Email = member.Email
		}

		p.ticketType, p.startTime = ResolveTicketType(event.TicketRules, p.row)
		p.valid = p.row.Name != "" && p.row.Email != ""
		p.duplicate = p.valid && keys.has(p)
		p.sameName = p.valid && keys.names[p.row.Name]
		out = append(out, p)
	}
	return out, nil
}

// PreviewImport evaluates the rows exactly like ImportTickets but writes
// nothing.
func (s *ImportService) PreviewImport(ctx context.Context, tenantID, eventID string, rows []models.ImportRow) ([]models.PreviewRow, error) {
	event, err := s.Events.GetEvent(ctx, tenantID, eventID)
	if err != nil {
		return nil, err
	}
	plans, err := s.plan(ctx, tenantID, event, rows)
	if err != nil {
		return nil, err
	}

	preview := make([]models.PreviewRow, 0, len(plans))
	for _, p := range plans {
		pr := models.PreviewRow{
			Row:        p.row,
			Member:     p.member != nil,
			TicketType: p.ticketType,
			StartTime:  p.startTime,
			Valid:      p.valid,
			Duplicate:  p.duplicate || p.sameName,
		}
		if p.member != nil {
			pr.MasterDataID = p.member.ID
		}
		preview = append(preview, pr)
	}
	return preview, nil
}

// ImportTickets creates approved participations from sales rows and queues
// an admission mail for each one.
func (s *ImportService) ImportTickets(ctx context.Context, tenantID, eventID string, rows []models.ImportRow) (*models.ImportResult, error) {
	event, tenant, err := s.loadEvent(ctx, tenantID, eventID)
	if err != nil {
		return nil, err
	}
	plans, err := s.plan(ctx, tenantID, event, rows)
	if err != nil {
		return nil, err
	}

	result := &models.ImportResult{}
	var parts []models.Participation
	validRows := 0
	for _, p := range plans {
		if !p.valid {
			result.SkippedInvalid++
			continue
		}
		validRows++
		if p.duplicate {
			result.SkippedDuplicate++
			continue
		}
		for n := 0; n < p.row.Quantity; n++ {
			parts = append(parts, s.newParticipation(event, p))
		}
	}
	if validRows == 0 {
		return nil, apperrors.Validation("No valid ticket rows.")
	}
	if len(parts) == 0 {
		return result, nil
	}

	if err := s.Participations.CreateBatch(ctx, parts); err != nil {
		return nil, err
	}
	result.Inserted = len(parts)
	s.Metrics.AddImported(len(parts))
	_ = s.Publisher.PublishImported(ctx, parts)

	queued, err := s.queueTickets(ctx, tenant, event, parts)
	if err != nil {
		s.logError("IMPORT", fmt.Sprintf("event %s: %d ticket(s) imported but mail was not queued: %v", event.ID, len(parts), err))
	}
	result.MailQueued = queued

	if s.Logger != nil {
		s.Logger.Info("IMPORT", fmt.Sprintf("event %s: inserted=%d invalid=%d duplicate=%d mail=%d",
			event.ID, result.Inserted, result.SkippedInvalid, result.SkippedDuplicate, result.MailQueued))
	}
	return result, nil
}

func (s *ImportService) newParticipation(event *models.Event, p planned) models.Participation {
	part := models.Participation{
		ID:            utils.NewID(),
		EventID:       event.ID,
		CheckinToken:  utils.NewCheckinToken(),
		Name:          p.row.Name,
		Email:         p.row.Email,
		SecondaryCode: secondaryCode(p),
		TicketType:    p.ticketType,
		StartTime:     p.startTime,
		Note:          p.row.ProductName,
		Status:        models.StatusApproved,
	}
	if p.member != nil {
		part.MasterDataID = p.member.ID
		part.MasterData = p.member
	}
	return part
}

// QueueUnsentTickets (re)sends admission mails for every participation of the
// event that has an email address and has not been mailed yet.
func (s *ImportService) QueueUnsentTickets(ctx context.Context, tenantID, eventID string) (int, error) {
	event, tenant, err := s.loadEvent(ctx, tenantID, eventID)
	if err != nil {
		return 0, err
	}
	parts, err := s.Participations.ListUnsent(ctx, event.ID)
	if err != nil {
		return 0, err
	}
	queued, err := s.queueTickets(ctx, tenant, event, parts)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrInternal, "Could not queue ticket mails.")
	}
	return queued, nil
}

// queueTickets renders the admission mails concurrently, enqueues them in one
// batch and flags the participations as mailed.
func (s *ImportService) queueTickets(ctx context.Context, tenant *models.Tenant, event *models.Event, parts []models.Participation) (int, error) {
	if len(parts) == 0 {
		return 0, nil
	}

	jobs := make([]*models.MailJob, len(parts))
	var mu sync.Mutex
	var renderFailures int

	g, _ := errgroup.WithContext(ctx)
	workers := s.RenderWorkers
	if workers < 1 {
		workers = defaultRenderWorkers
	}
	g.SetLimit(workers)
	for i := range parts {
		g.Go(func() error {
			job, err := s.Composer.TicketJob(mailtemplate.Admission, tenant, event, &parts[i])
			if err != nil {
				mu.Lock()
				renderFailures++
				mu.Unlock()
				if s.Logger != nil {
					s.Logger.LogMail("RENDER_FAILED", parts[i].Email, err.Error())
				}
				return nil
			}
			jobs[i] = &job
			return nil
		})
	}
	_ = g.Wait()

	var batch []models.MailJob
	var ids []string
	for i, job := range jobs {
		if job == nil {
			continue
		}
		batch = append(batch, *job)
		ids = append(ids, parts[i].ID)
	}
	if renderFailures > 0 {
		s.logError("MAIL", fmt.Sprintf("event %s: %d ticket mail(s) could not be rendered", event.ID, renderFailures))
	}
	if len(batch) == 0 {
		return 0, nil
	}

	queued, err := s.Mail.Enqueue(ctx, batch...)
	if err != nil {
		return 0, err
	}
	if err := s.Participations.MarkEmailSent(ctx, ids); err != nil {
		s.logError("MAIL", fmt.Sprintf("event %s: mail queued but email_sent not updated: %v", event.ID, err))
	}
	return queued, nil
}

func (s *ImportService) logError(category, message string) {
	if s.Logger != nil {
		s.Logger.Error(category, message)
	}
}
