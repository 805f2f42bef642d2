package mail

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ms-checkin/internal/logger"
	mailtemplate "ms-checkin/internal/mail/template"
	"ms-checkin/internal/models"
	"ms-checkin/internal/qr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) InsertMailJobs(ctx context.Context, jobs []models.MailJob) error {
	args := m.Called(jobs)
	return args.Error(0)
}

func TestEnqueueFillsDefaultsAndTriggers(t *testing.T) {
	hits := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- r.Header.Get("Authorization")
	}))
	defer srv.Close()

	store := new(MockStore)
	store.On("InsertMailJobs", mock.MatchedBy(func(jobs []models.MailJob) bool {
		return len(jobs) == 1 && jobs[0].ID != "" && jobs[0].Status == models.MailPending && !jobs[0].CreatedAt.IsZero()
	})).Return(nil)

	log := logger.New(&bytes.Buffer{})
	q := NewQueue(store, NewTrigger(srv.URL, "cron-secret", time.Second, log), log, nil)

	n, err := q.Enqueue(context.Background(), models.MailJob{TenantID: "t1", ToEmail: "a@x.com", Subject: "s", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	store.AssertExpectations(t)

	select {
	case auth := <-hits:
		assert.Equal(t, "Bearer cron-secret", auth)
	case <-time.After(2 * time.Second):
		t.Fatal("mail processor was not triggered")
	}
}

func TestEnqueueStoreFailure(t *testing.T) {
	store := new(MockStore)
	store.On("InsertMailJobs", mock.Anything).Return(errors.New("db down"))

	var buf bytes.Buffer
	q := NewQueue(store, nil, logger.New(&buf), nil)

	n, err := q.Enqueue(context.Background(), models.MailJob{ToEmail: "a@x.com"})
	assert.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Contains(t, buf.String(), "ENQUEUE_FAILED")
}

func TestEnqueueNothing(t *testing.T) {
	store := new(MockStore)
	q := NewQueue(store, nil, nil, nil)

	n, err := q.Enqueue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	store.AssertNotCalled(t, "InsertMailJobs", mock.Anything)
}

func TestTriggerSwallowsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	tr := NewTrigger(srv.URL, "", time.Second, logger.New(&buf))

	select {
	case <-tr.Fire():
	case <-time.After(2 * time.Second):
		t.Fatal("trigger did not finish")
	}
	assert.Contains(t, buf.String(), "trigger failed")

	var disabled *Trigger
	<-disabled.Fire()
	<-(&Trigger{}).Fire()
}

func TestComposerTicketJob(t *testing.T) {
	c := NewComposer("http://localhost:3000/", qr.NewGenerator())
	assert.Equal(t, "http://localhost:3000/checkin/tok-1", c.CheckinURL("tok-1"))

	tenant := &models.Tenant{ID: "t1", Name: "Acme"}
	event := &models.Event{ID: "e1", Name: "Gala", EmailTemplate: "See you there"}
	p := &models.Participation{ID: "p1", CheckinToken: "tok-1", Name: "Yamada", Email: "y@x.com", TicketType: "VIP"}

	job, err := c.TicketJob(mailtemplate.Admission, tenant, event, p)
	require.NoError(t, err)
	assert.Equal(t, "t1", job.TenantID)
	assert.Equal(t, "p1", job.ParticipationID)
	assert.Equal(t, "y@x.com", job.ToEmail)
	assert.Equal(t, "[Gala] Your admission ticket", job.Subject)
	assert.Contains(t, job.Body, "data:image/png;base64,")
	assert.Contains(t, job.Body, "See you there")

	_, err = c.TicketJob(mailtemplate.Admission, tenant, event, &models.Participation{ID: "p2"})
	assert.Error(t, err)
}
