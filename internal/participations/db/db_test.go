package db_test

import (
	"context"
	"testing"
	"time"

	"ms-checkin/internal/database/dbtest"
	"ms-checkin/internal/models"
	"ms-checkin/internal/participations/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func participation(id, eventID, token string) models.Participation {
	now := time.Now().UTC()
	return models.Participation{
		ID:             id,
		EventID:        eventID,
		CheckinToken:   token,
		TicketType:     models.DefaultTicketType,
		Status:         models.StatusPending,
		ReEntryHistory: []time.Time{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func setupDB(t *testing.T) (*db.DB, *bun.DB) {
	bunDB := dbtest.Open(t)
	_, err := bunDB.NewInsert().Model(&[]models.MasterDataRecord{
		{ID: "m1", TenantID: "t1", EmployeeID: "E1", Name: "Yamada", CreatedAt: time.Now()},
		{ID: "m2", TenantID: "t1", EmployeeID: "E2", Name: "Sato", CreatedAt: time.Now()},
	}).Exec(context.Background())
	require.NoError(t, err)
	return &db.DB{Bun: bunDB}, bunDB
}

func TestRecordEntryFirstThenReEntry(t *testing.T) {
	partDB, _ := setupDB(t)
	ctx := context.Background()
	require.NoError(t, partDB.CreateParticipation(ctx, participation("p1", "e1", "tok1")))

	first := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	p, entry, err := partDB.RecordEntry(ctx, "p1", first)
	require.NoError(t, err)
	assert.Equal(t, models.EntryFirst, entry)
	assert.Equal(t, models.StatusCheckedIn, p.Status)
	require.NotNil(t, p.CheckedInAt)
	assert.Empty(t, p.ReEntryHistory)

	second := first.Add(2 * time.Hour)
	p, entry, err = partDB.RecordEntry(ctx, "p1", second)
	require.NoError(t, err)
	assert.Equal(t, models.EntryReEntry, entry)

	third := second.Add(time.Hour)
	_, _, err = partDB.RecordEntry(ctx, "p1", third)
	require.NoError(t, err)

	stored, err := partDB.GetByToken(ctx, "tok1")
	require.NoError(t, err)
	require.NotNil(t, stored.CheckedInAt)
	assert.True(t, stored.CheckedInAt.Equal(first), "first entry timestamp never changes")
	require.Len(t, stored.ReEntryHistory, 2)
	assert.True(t, stored.ReEntryHistory[0].Equal(second))
	assert.True(t, stored.ReEntryHistory[1].Equal(third))
}

func TestRecordEntryUnknownID(t *testing.T) {
	partDB, _ := setupDB(t)
	_, _, err := partDB.RecordEntry(context.Background(), "missing", time.Now())
	assert.Error(t, err)
}

func TestFindByTokenOrID(t *testing.T) {
	partDB, _ := setupDB(t)
	ctx := context.Background()
	p := participation("p1", "e1", "tok1")
	p.MasterDataID = "m1"
	require.NoError(t, partDB.CreateParticipation(ctx, p))

	byToken, err := partDB.FindByTokenOrID(ctx, "tok1")
	require.NoError(t, err)
	require.NotNil(t, byToken)
	assert.Equal(t, "p1", byToken.ID)
	require.NotNil(t, byToken.MasterData)
	assert.Equal(t, "Yamada", byToken.MasterData.Name)

	byID, err := partDB.FindByTokenOrID(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, byID)

	none, err := partDB.FindByTokenOrID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestEventScopedLookups(t *testing.T) {
	partDB, _ := setupDB(t)
	ctx := context.Background()

	a := participation("p1", "e1", "tok1")
	a.SecondaryCode = "ORD-1"
	a.MasterDataID = "m1"
	b := participation("p2", "e2", "tok2")
	b.SecondaryCode = "ORD-1"
	b.MasterDataID = "m1"
	require.NoError(t, partDB.CreateParticipations(ctx, []models.Participation{a, b}))

	byCode, err := partDB.FindByEventAndSecondaryCode(ctx, "e1", "ORD-1")
	require.NoError(t, err)
	require.Len(t, byCode, 1)
	assert.Equal(t, "p1", byCode[0].ID)

	byEmployee, err := partDB.FindByEventAndEmployeeID(ctx, "e2", "E1")
	require.NoError(t, err)
	require.Len(t, byEmployee, 1)
	assert.Equal(t, "p2", byEmployee[0].ID)

	exists, err := partDB.ExistsForMember(ctx, "e1", "m1")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = partDB.ExistsForMember(ctx, "e1", "m2")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSearch(t *testing.T) {
	partDB, _ := setupDB(t)
	ctx := context.Background()

	guest := participation("p1", "e1", "tok1")
	guest.Name = "Tanaka Hanako"
	guest.SecondaryCode = "ORD-77"
	member := participation("p2", "e1", "tok2")
	member.MasterDataID = "m2"
	other := participation("p3", "e2", "tok3")
	other.Name = "Tanaka Ichiro"
	require.NoError(t, partDB.CreateParticipations(ctx, []models.Participation{guest, member, other}))

	found, err := partDB.Search(ctx, "e1", "tanaka", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "p1", found[0].ID)

	found, err = partDB.Search(ctx, "e1", "ord-77", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, err = partDB.Search(ctx, "e1", "sato", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "p2", found[0].ID)
}

func TestUnsentAndStats(t *testing.T) {
	partDB, _ := setupDB(t)
	ctx := context.Background()

	withMail := participation("p1", "e1", "tok1")
	withMail.Email = "a@x.com"
	sent := participation("p2", "e1", "tok2")
	sent.Email = "b@x.com"
	sent.EmailSent = true
	sent.Status = models.StatusApproved
	noMail := participation("p3", "e1", "tok3")
	require.NoError(t, partDB.CreateParticipations(ctx, []models.Participation{withMail, sent, noMail}))

	unsent, err := partDB.ListUnsent(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, unsent, 1)
	assert.Equal(t, "p1", unsent[0].ID)

	require.NoError(t, partDB.MarkEmailSent(ctx, []string{"p1"}))
	unsent, err = partDB.ListUnsent(ctx, "e1")
	require.NoError(t, err)
	assert.Empty(t, unsent)

	_, _, err = partDB.RecordEntry(ctx, "p3", time.Now())
	require.NoError(t, err)
	_, _, err = partDB.RecordEntry(ctx, "p3", time.Now())
	require.NoError(t, err)

	stats, err := partDB.EventStats(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Approved)
	assert.Equal(t, 1, stats.CheckedIn)
	assert.Equal(t, 1, stats.ReEntries)
	assert.Equal(t, 2, stats.EmailsSent)
}

func TestUpdateAndDelete(t *testing.T) {
	partDB, bunDB := setupDB(t)
	ctx := context.Background()
	require.NoError(t, partDB.CreateParticipation(ctx, participation("p1", "e1", "tok1")))
	job := models.MailJob{ID: "j1", TenantID: "t1", ParticipationID: "p1", ToEmail: "a@x.com", Subject: "s", Body: "b", Status: models.MailPending, CreatedAt: time.Now()}
	_, err := bunDB.NewInsert().Model(&job).Exec(ctx)
	require.NoError(t, err)

	p, err := partDB.GetParticipation(ctx, "e1", "p1")
	require.NoError(t, err)
	p.Name = "Renamed"
	p.EventID = "e2"
	require.NoError(t, partDB.UpdateParticipation(ctx, *p))

	p, err = partDB.GetParticipation(ctx, "e1", "p1")
	require.NoError(t, err)
	require.NotNil(t, p, "event_id is not an updatable column")
	assert.Equal(t, "Renamed", p.Name)

	deleted, err := partDB.DeleteParticipation(ctx, "e2", "p1")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = partDB.DeleteParticipation(ctx, "e1", "p1")
	require.NoError(t, err)
	assert.True(t, deleted)

	jobs, err := bunDB.NewSelect().Model((*models.MailJob)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, jobs)
}
