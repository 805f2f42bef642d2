package db_test

import (
	"context"
	"testing"
	"time"

	"ms-checkin/internal/database/dbtest"
	"ms-checkin/internal/models"
	"ms-checkin/internal/tenants/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func seed(t *testing.T, bunDB *bun.DB) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	tenants := []models.Tenant{
		{ID: "t1", Name: "Acme", CompanyCode: "12345", OwnerID: "owner-1", CreatedAt: now, UpdatedAt: now},
		{ID: "t2", Name: "Globex", CompanyCode: "67890", OwnerID: "owner-2", CreatedAt: now, UpdatedAt: now},
	}
	events := []models.Event{
		{ID: "e1", TenantID: "t1", Name: "Gala", EventCode: "GALA", StaffPasscodeHash: "x", TicketRules: []models.TicketRule{{ID: "r1", Name: "VIP", Keywords: []string{"8800"}}}, CreatedAt: now, UpdatedAt: now},
		{ID: "e2", TenantID: "t1", Name: "Fest", EventCode: "FEST", StaffPasscodeHash: "x", CreatedAt: now, UpdatedAt: now},
		{ID: "e3", TenantID: "t2", Name: "Gala 2", EventCode: "GALA", StaffPasscodeHash: "x", CreatedAt: now, UpdatedAt: now},
	}
	roster := []models.MasterDataRecord{
		{ID: "m1", TenantID: "t1", EmployeeID: "E1", Name: "Yamada", CreatedAt: now},
		{ID: "m2", TenantID: "t2", EmployeeID: "E1", Name: "Sato", CreatedAt: now},
	}
	parts := []models.Participation{
		{ID: "p1", EventID: "e1", CheckinToken: "tok1", TicketType: "VIP", Status: models.StatusApproved, ReEntryHistory: []time.Time{}, CreatedAt: now, UpdatedAt: now},
		{ID: "p2", EventID: "e2", CheckinToken: "tok2", TicketType: "Standard", Status: models.StatusApproved, ReEntryHistory: []time.Time{}, CreatedAt: now, UpdatedAt: now},
		{ID: "p3", EventID: "e3", CheckinToken: "tok3", TicketType: "Standard", Status: models.StatusApproved, ReEntryHistory: []time.Time{}, CreatedAt: now, UpdatedAt: now},
	}
	jobs := []models.MailJob{
		{ID: "j1", TenantID: "t1", ParticipationID: "p1", ToEmail: "a@x.com", Subject: "s", Body: "b", Status: models.MailPending, CreatedAt: now},
		{ID: "j2", TenantID: "t1", ParticipationID: "p2", ToEmail: "b@x.com", Subject: "s", Body: "b", Status: models.MailPending, CreatedAt: now},
		{ID: "j3", TenantID: "t2", ParticipationID: "p3", ToEmail: "c@x.com", Subject: "s", Body: "b", Status: models.MailPending, CreatedAt: now},
	}

	for _, m := range []interface{}{&tenants, &events, &roster, &parts, &jobs} {
		_, err := bunDB.NewInsert().Model(m).Exec(ctx)
		require.NoError(t, err)
	}
}

func count(t *testing.T, bunDB *bun.DB, model interface{}) int {
	n, err := bunDB.NewSelect().Model(model).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestTenantLookups(t *testing.T) {
	bunDB := dbtest.Open(t)
	seed(t, bunDB)
	tenantDB := &db.DB{Bun: bunDB}
	ctx := context.Background()

	tenant, err := tenantDB.GetTenantByCompanyCode(ctx, "12345")
	require.NoError(t, err)
	require.NotNil(t, tenant)
	assert.Equal(t, "t1", tenant.ID)

	missing, err := tenantDB.GetTenantByCompanyCode(ctx, "00000")
	require.NoError(t, err)
	assert.Nil(t, missing)

	owned, err := tenantDB.GetTenantByOwner(ctx, "owner-2")
	require.NoError(t, err)
	assert.Equal(t, "t2", owned.ID)

	exists, err := tenantDB.CompanyCodeExists(ctx, "67890")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestEventLookups(t *testing.T) {
	bunDB := dbtest.Open(t)
	seed(t, bunDB)
	tenantDB := &db.DB{Bun: bunDB}
	ctx := context.Background()

	event, err := tenantDB.GetEventByCode(ctx, "t1", "GALA")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "e1", event.ID)
	require.Len(t, event.TicketRules, 1)
	assert.Equal(t, []string{"8800"}, event.TicketRules[0].Keywords)

	other, err := tenantDB.GetEvent(ctx, "t2", "e1")
	require.NoError(t, err)
	assert.Nil(t, other)

	all, err := tenantDB.FindEventsByCode(ctx, "GALA", 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	taken, err := tenantDB.EventCodeExists(ctx, "t2", "FEST")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestDeleteEventCascades(t *testing.T) {
	bunDB := dbtest.Open(t)
	seed(t, bunDB)
	tenantDB := &db.DB{Bun: bunDB}
	ctx := context.Background()

	deleted, err := tenantDB.DeleteEvent(ctx, "t2", "e1")
	require.NoError(t, err)
	assert.False(t, deleted, "another tenant's event must not be deleted")
	assert.Equal(t, 3, count(t, bunDB, (*models.Participation)(nil)))
	assert.Equal(t, 3, count(t, bunDB, (*models.MailJob)(nil)))

	deleted, err = tenantDB.DeleteEvent(ctx, "t1", "e1")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, 2, count(t, bunDB, (*models.Event)(nil)))
	assert.Equal(t, 2, count(t, bunDB, (*models.Participation)(nil)))
	assert.Equal(t, 2, count(t, bunDB, (*models.MailJob)(nil)))
}

func TestDeleteTenantCascades(t *testing.T) {
	bunDB := dbtest.Open(t)
	seed(t, bunDB)
	tenantDB := &db.DB{Bun: bunDB}

	deleted, err := tenantDB.DeleteTenant(context.Background(), "t1")
	require.NoError(t, err)
	assert.True(t, deleted)

	assert.Equal(t, 1, count(t, bunDB, (*models.Tenant)(nil)))
	assert.Equal(t, 1, count(t, bunDB, (*models.Event)(nil)))
	assert.Equal(t, 1, count(t, bunDB, (*models.MasterDataRecord)(nil)))
	assert.Equal(t, 1, count(t, bunDB, (*models.Participation)(nil)))
	assert.Equal(t, 1, count(t, bunDB, (*models.MailJob)(nil)))

	deleted, err = tenantDB.DeleteTenant(context.Background(), "t1")
	require.NoError(t, err)
	assert.False(t, deleted)
}
