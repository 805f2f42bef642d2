package models

import (
	"time"

	"github.com/uptrace/bun"
)

// TicketRule maps import price/product keywords onto a ticket type.
type TicketRule struct {
	ID        string   `json:"id"`
	Name      string   `json:"name" validate:"required"`
	Keywords  []string `json:"keywords" validate:"required,min=1,dive,required"`
	StartTime string   `json:"start_time,omitempty"`
}

type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID                  string       `bun:"id,pk" json:"id"`
	TenantID            string       `bun:"tenant_id,notnull,unique:tenant_event_code" json:"tenant_id"`
	Name                string       `bun:"name,notnull" json:"name"`
	EventCode           string       `bun:"event_code,notnull,unique:tenant_event_code" json:"event_code"`
	StaffPasscodeHash   string       `bun:"staff_passcode_hash,notnull" json:"-"`
	IsPublicApplication bool         `bun:"is_public_application,notnull" json:"is_public_application"`
	TicketRules         []TicketRule `bun:"ticket_config,type:jsonb" json:"ticket_rules"`
	EmailTemplate       string       `bun:"email_template,nullzero" json:"email_template,omitempty"`
	CreatedAt           time.Time    `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt           time.Time    `bun:"updated_at,notnull" json:"updated_at"`
}

// EventInput creates an event. Passcode is hashed before it is stored.
type EventInput struct {
	Name                string       `json:"name" validate:"required"`
	EventCode           string       `json:"event_code" validate:"required"`
	Passcode            string       `json:"passcode" validate:"required,min=4"`
	IsPublicApplication bool         `json:"is_public_application"`
	TicketRules         []TicketRule `json:"ticket_rules" validate:"dive"`
	EmailTemplate       string       `json:"email_template"`
}

// EventUpdate changes only the fields that are set. EventCode is immutable.
type EventUpdate struct {
	Name                *string       `json:"name" validate:"omitempty,min=1"`
	Passcode            *string       `json:"passcode" validate:"omitempty,min=4"`
	IsPublicApplication *bool         `json:"is_public_application"`
	TicketRules         *[]TicketRule `json:"ticket_rules" validate:"omitempty,dive"`
	EmailTemplate       *string       `json:"email_template"`
}
