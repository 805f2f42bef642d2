package mail

import (
	"context"
	"fmt"
	"time"

	"ms-checkin/internal/logger"
	"ms-checkin/internal/metrics"
	"ms-checkin/internal/models"
	"ms-checkin/internal/utils"
)

type Store interface {
	InsertMailJobs(ctx context.Context, jobs []models.MailJob) error
}

// Queue is the producer side of the mail_jobs table. Draining and SMTP
// delivery are done by a separate processor.
type Queue struct {
	store   Store
	trigger *Trigger
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewQueue(store Store, trigger *Trigger, log *logger.Logger, m *metrics.Metrics) *Queue {
	return &Queue{
		store:   store,
		trigger: trigger,
		logger:  log,
		metrics: m,
		now:     time.Now,
	}
}

// Enqueue stores the jobs as pending and fires the processor trigger.
func (q *Queue) Enqueue(ctx context.Context, jobs ...models.MailJob) (int, error) {
	if len(jobs) == 0 {
		return 0, nil
	}

	now := q.now().UTC()
	for i := range jobs {
		if jobs[i].ID == "" {
			jobs[i].ID = utils.NewID()
		}
		jobs[i].Status = models.MailPending
		jobs[i].Retries = 0
		jobs[i].CreatedAt = now
	}

	if err := q.store.InsertMailJobs(ctx, jobs); err != nil {
		q.metrics.IncMailEnqueueError()
		if q.logger != nil {
			q.logger.LogMail("ENQUEUE_FAILED", jobs[0].ToEmail, fmt.Sprintf("%d job(s): %v", len(jobs), err))
		}
		return 0, fmt.Errorf("enqueue mail jobs: %w", err)
	}

	q.metrics.AddMailEnqueued(len(jobs))
	if q.logger != nil {
		for _, j := range jobs {
			q.logger.LogMail("QUEUED", j.ToEmail, j.Subject)
		}
	}
	q.trigger.Fire()
	return len(jobs), nil
}
