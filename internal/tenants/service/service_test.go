package service_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"ms-checkin/internal/apperrors"
	"ms-checkin/internal/database/dbtest"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
	"ms-checkin/internal/tenants/db"
	"ms-checkin/internal/tenants/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newService(t *testing.T) *service.TenantService {
	svc := service.NewTenantService(&db.DB{Bun: dbtest.Open(t)}, logger.New(&bytes.Buffer{}))
	svc.SetHashCost(bcrypt.MinCost)
	return svc
}

func setupEvent(t *testing.T, svc *service.TenantService, public bool) (*models.Tenant, *models.Event) {
	t.Helper()
	ctx := context.Background()
	tenant, err := svc.CreateTenant(ctx, models.TenantInput{Name: "Acme", OwnerID: "owner-1"})
	require.NoError(t, err)
	event, err := svc.CreateEvent(ctx, tenant.ID, models.EventInput{
		Name:                "Gala",
		EventCode:           "GALA",
		Passcode:            "s3cret",
		IsPublicApplication: public,
		TicketRules:         []models.TicketRule{{Name: " VIP ", Keywords: []string{"8800", " "}}},
	})
	require.NoError(t, err)
	return tenant, event
}

func TestCreateTenantGeneratesCompanyCode(t *testing.T) {
	svc := newService(t)
	tenant, err := svc.CreateTenant(context.Background(), models.TenantInput{Name: "Acme", OwnerID: "owner-1"})
	require.NoError(t, err)
	assert.Regexp(t, `^\d{5,6}$`, tenant.CompanyCode)

	_, err = svc.CreateTenant(context.Background(), models.TenantInput{Name: "Copy", CompanyCode: tenant.CompanyCode, OwnerID: "owner-2"})
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))

	_, err = svc.CreateTenant(context.Background(), models.TenantInput{OwnerID: "owner-3"})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestCreateEventHashesPasscodeAndNormalizesRules(t *testing.T) {
	svc := newService(t)
	_, event := setupEvent(t, svc, false)

	assert.NotEqual(t, "s3cret", event.StaffPasscodeHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(event.StaffPasscodeHash), []byte("s3cret")))
	require.Len(t, event.TicketRules, 1)
	assert.Equal(t, "VIP", event.TicketRules[0].Name)
	assert.Equal(t, []string{"8800"}, event.TicketRules[0].Keywords)
	assert.NotEmpty(t, event.TicketRules[0].ID)
}

func TestCreateEventDuplicateCode(t *testing.T) {
	svc := newService(t)
	tenant, _ := setupEvent(t, svc, false)

	_, err := svc.CreateEvent(context.Background(), tenant.ID, models.EventInput{Name: "Again", EventCode: "GALA", Passcode: "abcd"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, "Event code already in use.", apperrors.Message(err))
}

func TestVerifyStaffLogin(t *testing.T) {
	svc := newService(t)
	tenant, event := setupEvent(t, svc, false)
	ctx := context.Background()

	session, err := svc.VerifyStaffLogin(ctx, tenant.CompanyCode, "GALA", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, event.ID, session.EventID)
	assert.Equal(t, "Gala", session.EventName)
	assert.Equal(t, "Acme", session.TenantName)

	_, err = svc.VerifyStaffLogin(ctx, tenant.CompanyCode, "GALA", "wrong")
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))

	_, err = svc.VerifyStaffLogin(ctx, tenant.CompanyCode, "NOPE", "s3cret")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	_, err = svc.VerifyStaffLogin(ctx, "", "GALA", "s3cret")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestUpdateEventKeepsOtherFields(t *testing.T) {
	svc := newService(t)
	tenant, event := setupEvent(t, svc, false)
	ctx := context.Background()

	public := true
	newPass := "n3wpass"
	updated, err := svc.UpdateEvent(ctx, tenant.ID, event.ID, models.EventUpdate{IsPublicApplication: &public, Passcode: &newPass})
	require.NoError(t, err)
	assert.True(t, updated.IsPublicApplication)
	assert.Equal(t, "Gala", updated.Name)
	assert.Len(t, updated.TicketRules, 1)

	_, err = svc.VerifyStaffLogin(ctx, tenant.CompanyCode, "GALA", "n3wpass")
	assert.NoError(t, err)

	_, err = svc.UpdateEvent(ctx, "other-tenant", event.ID, models.EventUpdate{IsPublicApplication: &public})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestFindEventByCode(t *testing.T) {
	svc := newService(t)
	tenant, event := setupEvent(t, svc, true)
	ctx := context.Background()

	found, err := svc.FindEventByCode(ctx, "GALA", "")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, event.ID, found.ID)

	other, err := svc.CreateTenant(ctx, models.TenantInput{Name: "Globex", OwnerID: "owner-2"})
	require.NoError(t, err)
	_, err = svc.CreateEvent(ctx, other.ID, models.EventInput{Name: "Gala", EventCode: "GALA", Passcode: "abcd"})
	require.NoError(t, err)

	ambiguous, err := svc.FindEventByCode(ctx, "GALA", "")
	require.NoError(t, err)
	assert.Nil(t, ambiguous)

	scoped, err := svc.FindEventByCode(ctx, "GALA", tenant.CompanyCode)
	require.NoError(t, err)
	require.NotNil(t, scoped)
	assert.Equal(t, event.ID, scoped.ID)

	none, err := svc.FindEventByCode(ctx, "NOPE", tenant.CompanyCode)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestGetTenantForOwnerAndSMTP(t *testing.T) {
	svc := newService(t)
	tenant, _ := setupEvent(t, svc, false)
	ctx := context.Background()

	got, err := svc.GetTenantForOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, got.ID)

	_, err = svc.GetTenantForOwner(ctx, "stranger")
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	_, err = svc.UpdateSMTPSettings(ctx, tenant.ID, models.SMTPSettings{Host: "smtp.example.com"})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	updated, err := svc.UpdateSMTPSettings(ctx, tenant.ID, models.SMTPSettings{
		Host: "smtp.example.com", Port: 587, User: "u", Password: "p", FromEmail: "noreply@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, 587, updated.SMTPPort)
}

func TestDeleteEventAndTenant(t *testing.T) {
	svc := newService(t)
	tenant, event := setupEvent(t, svc, false)
	ctx := context.Background()

	assert.True(t, apperrors.Is(svc.DeleteEvent(ctx, "other", event.ID), apperrors.ErrNotFound))
	require.NoError(t, svc.DeleteEvent(ctx, tenant.ID, event.ID))
	require.NoError(t, svc.DeleteTenant(ctx, tenant.ID))
	assert.True(t, apperrors.Is(svc.DeleteTenant(ctx, tenant.ID), apperrors.ErrNotFound))
}

type failingDB struct {
	service.DBLayer
}

func (failingDB) GetTenantByCompanyCode(ctx context.Context, code string) (*models.Tenant, error) {
	return nil, errors.New("connection reset")
}

func TestPersistenceErrorsAreGeneric(t *testing.T) {
	var buf bytes.Buffer
	svc := service.NewTenantService(failingDB{}, logger.New(&buf))

	_, _, err := svc.ResolveEvent(context.Background(), "12345", "GALA")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInternal))
	assert.Equal(t, apperrors.GenericFailure, apperrors.Message(err))
	assert.Contains(t, buf.String(), "connection reset")
}
