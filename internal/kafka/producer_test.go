package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ms-checkin/internal/config"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var testTopics = config.TopicConfig{
	ParticipationRegistered: "checkin.participation.registered",
	ParticipationImported:   "checkin.participation.imported",
	ParticipationCheckedIn:  "checkin.participation.checked_in",
}

func newTestPublisher(w *fakeWriter, buf *bytes.Buffer) *Publisher {
	log := logger.New(buf)
	return NewPublisher(&Producer{Writer: w, Logger: log}, testTopics, log)
}

func TestPublishRegistered(t *testing.T) {
	w := &fakeWriter{}
	p := newTestPublisher(w, &bytes.Buffer{})

	part := &models.Participation{ID: "p1", EventID: "e1", TicketType: "Standard", Status: models.StatusPending}
	require.NoError(t, p.PublishRegistered(context.Background(), part))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, testTopics.ParticipationRegistered, w.msgs[0].Topic)
	assert.Equal(t, "p1", string(w.msgs[0].Key))

	var ev ParticipationEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	assert.Equal(t, "application", ev.Source)
	assert.Equal(t, models.StatusPending, ev.Status)
}

func TestPublishImportedBatchesByEvent(t *testing.T) {
	w := &fakeWriter{}
	p := newTestPublisher(w, &bytes.Buffer{})

	parts := []models.Participation{
		{ID: "p1", EventID: "e1", Status: models.StatusApproved},
		{ID: "p2", EventID: "e1", Status: models.StatusApproved},
	}
	require.NoError(t, p.PublishImported(context.Background(), parts))
	require.NoError(t, p.PublishImported(context.Background(), nil))

	require.Len(t, w.msgs, 2)
	for _, m := range w.msgs {
		assert.Equal(t, testTopics.ParticipationImported, m.Topic)
		assert.Equal(t, "e1", string(m.Key))
	}
}

func TestPublishCheckedInFailureIsLogged(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	var buf bytes.Buffer
	p := newTestPublisher(w, &buf)

	err := p.PublishCheckedIn(context.Background(), models.CheckinEvent{ParticipationID: "p1", EntryType: models.EntryFirst, At: time.Now()})
	assert.Error(t, err)
	assert.Contains(t, buf.String(), "PUBLISH_FAILED")
}

func TestNoopPublisher(t *testing.T) {
	p := NewNoopPublisher()
	assert.False(t, p.Enabled())
	assert.NoError(t, p.PublishRegistered(context.Background(), &models.Participation{ID: "p1"}))
	assert.NoError(t, p.PublishImported(context.Background(), []models.Participation{{ID: "p1"}}))
	assert.NoError(t, p.PublishCheckedIn(context.Background(), models.CheckinEvent{}))
	assert.NoError(t, p.Close())

	var nilPublisher *Publisher
	assert.NoError(t, nilPublisher.PublishRegistered(context.Background(), &models.Participation{}))
}

func TestCloseClosesWriter(t *testing.T) {
	w := &fakeWriter{}
	p := newTestPublisher(w, &bytes.Buffer{})
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestTopicNames(t *testing.T) {
	assert.Equal(t, []string{
		"checkin.participation.registered",
		"checkin.participation.imported",
		"checkin.participation.checked_in",
	}, TopicNames(testTopics))
}
