package models

import (
	"time"

	"github.com/uptrace/bun"
)

type ParticipationStatus string

const (
	StatusPending   ParticipationStatus = "pending"
	StatusApproved  ParticipationStatus = "approved"
	StatusCheckedIn ParticipationStatus = "checked_in"
)

const DefaultTicketType = "Standard"

// Participation is one attendee's registration and ticket for one event.
type Participation struct {
	bun.BaseModel `bun:"table:participations,alias:p"`

	ID           string `bun:"id,pk" json:"id"`
	EventID      string `bun:"event_id,notnull" json:"event_id"`
	CheckinToken string `bun:"checkin_token,unique,nullzero" json:"checkin_token,omitempty"`
	MasterDataID string `bun:"master_data_id,nullzero" json:"master_data_id,omitempty"`

	Name  string `bun:"name,nullzero" json:"name,omitempty"`
	Email string `bun:"email,nullzero" json:"email,omitempty"`
	Phone string `bun:"phone,nullzero" json:"phone,omitempty"`
	// SecondaryCode is the human-enterable fallback identifier used for manual
	// check-in: an external order id or member code.
	SecondaryCode string `bun:"secondary_code,nullzero" json:"secondary_code,omitempty"`

	TicketType string `bun:"ticket_type,notnull" json:"ticket_type"`
	StartTime  string `bun:"start_time,nullzero" json:"start_time,omitempty"`
	Note       string `bun:"note,nullzero" json:"note,omitempty"`

	Status         ParticipationStatus `bun:"status,notnull" json:"status"`
	CheckedInAt    *time.Time          `bun:"checked_in_at,nullzero" json:"checked_in_at,omitempty"`
	ReEntryHistory []time.Time         `bun:"re_entry_history,type:jsonb" json:"re_entry_history"`

	EmailSent bool      `bun:"email_sent,notnull" json:"email_sent"`
	InvitedBy string    `bun:"invited_by,nullzero" json:"invited_by,omitempty"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`

	MasterData *MasterDataRecord `bun:"rel:belongs-to,join:master_data_id=id" json:"master_data,omitempty"`
	Event      *Event            `bun:"rel:belongs-to,join:event_id=id" json:"-"`
}

// DisplayName falls back from the explicit name to the roster name.
func (p *Participation) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if p.MasterData != nil && p.MasterData.Name != "" {
		return p.MasterData.Name
	}
	return UnregisteredName
}

const UnregisteredName = "(unregistered)"

// ParticipationUpdate holds the admin-editable fields of a participation.
type ParticipationUpdate struct {
	Name          *string `json:"name"`
	Email         *string `json:"email" validate:"omitempty,email"`
	Phone         *string `json:"phone"`
	SecondaryCode *string `json:"secondary_code"`
	TicketType    *string `json:"ticket_type"`
	StartTime     *string `json:"start_time"`
	Note          *string `json:"note"`
}

type EventStats struct {
	EventID    string `json:"event_id"`
	EventName  string `json:"event_name"`
	EventCode  string `json:"event_code"`
	Total      int    `json:"total"`
	Pending    int    `json:"pending"`
	Approved   int    `json:"approved"`
	CheckedIn  int    `json:"checked_in"`
	ReEntries  int    `json:"re_entries"`
	EmailsSent int    `json:"emails_sent"`
}
