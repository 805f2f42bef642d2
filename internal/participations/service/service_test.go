package service_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"ms-checkin/internal/apperrors"
	"ms-checkin/internal/database/dbtest"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
	"ms-checkin/internal/participations/db"
	"ms-checkin/internal/participations/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) *service.ParticipationService {
	return service.NewParticipationService(&db.DB{Bun: dbtest.Open(t)}, logger.New(&bytes.Buffer{}))
}

func TestCreateFillsDefaults(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	p := &models.Participation{ID: "p1", EventID: "e1", CheckinToken: "tok1", Name: "Guest"}
	require.NoError(t, svc.Create(ctx, p))
	assert.Equal(t, models.DefaultTicketType, p.TicketType)
	assert.Equal(t, models.StatusPending, p.Status)
	assert.NotNil(t, p.ReEntryHistory)

	got, err := svc.GetByToken(ctx, "tok1")
	require.NoError(t, err)
	assert.Equal(t, "Guest", got.DisplayName())
	assert.Nil(t, got.CheckedInAt)
}

func TestUpdateOnlyEditableFields(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.Create(ctx, &models.Participation{ID: "p1", EventID: "e1", CheckinToken: "tok1", TicketType: "VIP"}))

	name := " Yamada "
	empty := ""
	updated, err := svc.Update(ctx, "e1", "p1", models.ParticipationUpdate{Name: &name, TicketType: &empty})
	require.NoError(t, err)
	assert.Equal(t, "Yamada", updated.Name)
	assert.Equal(t, models.DefaultTicketType, updated.TicketType)

	bad := "not-an-email"
	_, err = svc.Update(ctx, "e1", "p1", models.ParticipationUpdate{Email: &bad})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	_, err = svc.Update(ctx, "e2", "p1", models.ParticipationUpdate{Name: &name})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestRecordEntryThroughService(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.Create(ctx, &models.Participation{ID: "p1", EventID: "e1", CheckinToken: "tok1"}))

	_, entry, err := svc.RecordEntry(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.EntryFirst, entry)

	p, entry, err := svc.RecordEntry(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.EntryReEntry, entry)
	assert.Len(t, p.ReEntryHistory, 1)
}

func TestSearchRequiresQuery(t *testing.T) {
	svc := newService(t)
	_, err := svc.Search(context.Background(), "e1", "  ")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestEventStatsCarriesEventInfo(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.Create(ctx, &models.Participation{ID: "p1", EventID: "e1", CheckinToken: "tok1"}))

	stats, err := svc.EventStats(ctx, &models.Event{ID: "e1", Name: "Gala", EventCode: "GALA"})
	require.NoError(t, err)
	assert.Equal(t, "Gala", stats.EventName)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Pending)
}

type MockDB struct {
	mock.Mock
	service.DBLayer
}

func (m *MockDB) RecordEntry(ctx context.Context, id string, at time.Time) (*models.Participation, models.EntryType, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*models.Participation), args.Get(1).(models.EntryType), args.Error(2)
}

func TestRecordEntryPersistenceFailureIsGeneric(t *testing.T) {
	mockDB := new(MockDB)
	mockDB.On("RecordEntry", "p1").Return(nil, "", errors.New("deadlock detected"))

	var buf bytes.Buffer
	svc := service.NewParticipationService(mockDB, logger.New(&buf))
	_, _, err := svc.RecordEntry(context.Background(), "p1")

	require.Error(t, err)
	assert.Equal(t, apperrors.GenericFailure, apperrors.Message(err))
	assert.Contains(t, buf.String(), "deadlock detected")
	mockDB.AssertExpectations(t)
}
