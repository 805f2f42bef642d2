package service_test

import (
	"bytes"
	"context"
	"testing"

	"ms-checkin/internal/apperrors"
	"ms-checkin/internal/apply/service"
	"ms-checkin/internal/database/dbtest"
	"ms-checkin/internal/kafka"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/mail"
	maildb "ms-checkin/internal/mail/db"
	"ms-checkin/internal/metrics"
	"ms-checkin/internal/models"
	partdb "ms-checkin/internal/participations/db"
	partservice "ms-checkin/internal/participations/service"
	"ms-checkin/internal/qr"
	rosterdb "ms-checkin/internal/roster/db"
	rosterservice "ms-checkin/internal/roster/service"
	tenantdb "ms-checkin/internal/tenants/db"
	tenantservice "ms-checkin/internal/tenants/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	svc     *service.ApplyService
	tenants *tenantservice.TenantService
	parts   *partservice.ParticipationService
	mail    *maildb.DB
	metrics *metrics.Metrics
	tenant  *models.Tenant
	public  *models.Event
	private *models.Event
}

func setup(t *testing.T) *fixture {
	t.Helper()
	bunDB := dbtest.Open(t)
	log := logger.New(&bytes.Buffer{})
	ctx := context.Background()

	tenants := tenantservice.NewTenantService(&tenantdb.DB{Bun: bunDB}, log)
	tenants.SetHashCost(bcrypt.MinCost)
	tenant, err := tenants.CreateTenant(ctx, models.TenantInput{Name: "Acme", OwnerID: "owner-1"})
	require.NoError(t, err)
	public, err := tenants.CreateEvent(ctx, tenant.ID, models.EventInput{Name: "Gala", EventCode: "GALA", Passcode: "s3cret", IsPublicApplication: true})
	require.NoError(t, err)
	private, err := tenants.CreateEvent(ctx, tenant.ID, models.EventInput{Name: "Board", EventCode: "BOARD", Passcode: "s3cret"})
	require.NoError(t, err)

	roster := rosterservice.NewRosterService(&rosterdb.DB{Bun: bunDB}, log)
	_, err = roster.Add(ctx, tenant.ID, models.RosterRow{EmployeeID: "E1", Name: "Yamada", Email: "y@x.com"})
	require.NoError(t, err)

	m := metrics.New(prometheus.NewRegistry())
	parts := partservice.NewParticipationService(&partdb.DB{Bun: bunDB}, log)
	mailDB := &maildb.DB{Bun: bunDB}
	svc := service.NewApplyService(
		tenants, roster, parts,
		mail.NewQueue(mailDB, nil, log, m),
		mail.NewComposer("https://checkin.example.com", qr.NewGenerator()),
		kafka.NewNoopPublisher(), m, log,
	)
	return &fixture{svc: svc, tenants: tenants, parts: parts, mail: mailDB, metrics: m, tenant: tenant, public: public, private: private}
}

func request(eventCode string) models.ApplicationRequest {
	return models.ApplicationRequest{EventCode: eventCode, EmployeeID: "E1", Name: "Yamada Taro", Email: "y@x.com"}
}

func TestApplyCreatesPendingParticipationAndMail(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	result, err := f.svc.Apply(ctx, request("GALA"))
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	assert.False(t, result.Dropped)

	p, err := f.parts.GetByToken(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, p.Status)
	assert.Equal(t, f.public.ID, p.EventID)
	assert.NotEmpty(t, p.MasterDataID)
	assert.Nil(t, p.CheckedInAt)

	jobs, err := f.mail.ListMailJobs(ctx, f.tenant.ID, models.MailPending, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "y@x.com", jobs[0].ToEmail)
	assert.Contains(t, jobs[0].Body, "data:image/png;base64,")

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Applications.WithLabelValues("accepted")))
}

func TestApplyTwiceIsConflict(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Apply(ctx, request("GALA"))
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, request("GALA"))
	assert.ErrorIs(t, err, service.ErrAlreadyApplied)

	ps, err := f.parts.ListByEvent(ctx, f.public.ID)
	require.NoError(t, err)
	assert.Len(t, ps, 1)
}

func TestApplyInviteOnly(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Apply(context.Background(), request("BOARD"))
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}

func TestApplyValidationOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Apply(ctx, models.ApplicationRequest{EventCode: "GALA", EmployeeID: "E1"})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation), "missing fields are reported before the event lookup")

	_, err = f.svc.Apply(ctx, request("NOPE"))
	assert.ErrorIs(t, err, service.ErrInvalidEventCode)

	req := request("GALA")
	req.EmployeeID = "E404"
	_, err = f.svc.Apply(ctx, req)
	assert.ErrorIs(t, err, service.ErrNotInRoster)

	req = request("GALA")
	req.CompanyCode = f.tenant.CompanyCode
	_, err = f.svc.Apply(ctx, req)
	assert.NoError(t, err)
}

func TestApplyHoneypotIsSilent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req := request("GALA")
	req.Honeypot = "555-1234"
	result, err := f.svc.Apply(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.Dropped)
	assert.Empty(t, result.Token)

	ps, err := f.parts.ListByEvent(ctx, f.public.ID)
	require.NoError(t, err)
	assert.Empty(t, ps)
}

func TestGetTicket(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	result, err := f.svc.Apply(ctx, request("GALA"))
	require.NoError(t, err)

	view, err := f.svc.GetTicket(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, "Gala", view.EventName)
	assert.Equal(t, "Yamada Taro", view.Name)
	assert.Equal(t, "https://checkin.example.com/checkin/"+result.Token, view.CheckinURL)
	assert.Contains(t, view.QRDataURI, "data:image/png;base64,")

	_, err = f.svc.GetTicket(ctx, "missing")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}
