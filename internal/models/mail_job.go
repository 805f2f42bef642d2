package models

import (
	"time"

	"github.com/uptrace/bun"
)

type MailJobStatus string

const (
	MailPending MailJobStatus = "pending"
	MailSent    MailJobStatus = "sent"
	MailFailed  MailJobStatus = "failed"
)

// MailJob is a queued message drained by the external mail processor.
type MailJob struct {
	bun.BaseModel `bun:"table:mail_jobs,alias:mj"`

	ID              string        `bun:"id,pk" json:"id"`
	TenantID        string        `bun:"tenant_id,notnull" json:"tenant_id"`
	ParticipationID string        `bun:"participation_id,nullzero" json:"participation_id,omitempty"`
	ToEmail         string        `bun:"to_email,notnull" json:"to_email"`
	Subject         string        `bun:"subject,notnull" json:"subject"`
	Body            string        `bun:"body,notnull" json:"body"`
	Status          MailJobStatus `bun:"status,notnull" json:"status"`
	Retries         int           `bun:"retries,notnull" json:"retries"`
	ErrorMessage    string        `bun:"error_message,nullzero" json:"error_message,omitempty"`
	CreatedAt       time.Time     `bun:"created_at,notnull" json:"created_at"`
	ProcessedAt     *time.Time    `bun:"processed_at,nullzero" json:"processed_at,omitempty"`
}
