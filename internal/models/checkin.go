package models

import "time"

// StaffSession scopes a check-in device to exactly one event.
type StaffSession struct {
	ID         string    `json:"id"`
	EventID    string    `json:"eventId"`
	EventName  string    `json:"eventName"`
	TenantID   string    `json:"tenantId"`
	TenantName string    `json:"tenantName"`
	IssuedAt   time.Time `json:"issuedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

type EntryType string

const (
	EntryFirst   EntryType = "first"
	EntryReEntry EntryType = "re_entry"
)

type CheckinParticipant struct {
	Name       string    `json:"name"`
	TicketType string    `json:"ticketType"`
	StartTime  string    `json:"startTime,omitempty"`
	EntryType  EntryType `json:"entryType,omitempty"`
}

// CheckinResult is the structured outcome returned to the scanning device.
type CheckinResult struct {
	Success     bool                `json:"success"`
	Message     string              `json:"message"`
	Participant *CheckinParticipant `json:"participant,omitempty"`
	ErrorCode   string              `json:"errorCode,omitempty"`
}

// CheckinEvent is broadcast to live dashboards and Kafka after an entry.
type CheckinEvent struct {
	ParticipationID string    `json:"participation_id"`
	EventID         string    `json:"event_id"`
	Name            string    `json:"name"`
	TicketType      string    `json:"ticket_type"`
	EntryType       EntryType `json:"entry_type"`
	At              time.Time `json:"at"`
}
