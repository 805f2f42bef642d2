package template

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
)

type Kind int

const (
	// Application confirms a self-service registration.
	Application Kind = iota
	// Admission delivers an imported or resent ticket.
	Admission
)

// TicketMail is everything a ticket email shows.
type TicketMail struct {
	Kind          Kind
	EventName     string
	TenantName    string
	Name          string
	TicketType    string
	StartTime     string
	SecondaryCode string
	CheckinURL    string
	QRDataURI     string
	ExtraText     string
}

var ticketTemplate = htmltemplate.Must(htmltemplate.New("ticket").Parse(`<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #eee; border-radius: 10px;">
  <h2 style="color: #333;">{{.Heading}}</h2>
  <p>Dear {{.Name}},</p>
  <p>{{.Lead}}</p>
  <div style="text-align: center; margin: 30px 0; padding: 20px; background: #f9f9f9; border-radius: 10px;">
    <img src="{{.QR}}" alt="QR Code" style="width: 200px; height: 200px;" />
    <p style="font-size: 12px; color: #666; margin-top: 10px;">Show this QR code at the reception desk.</p>
    <p style="font-size: 12px;"><a href="{{.CheckinURL}}">{{.CheckinURL}}</a></p>
  </div>
  <div style="border-top: 1px solid #eee; padding-top: 20px; font-size: 14px; color: #555;">
    <p><strong>Ticket type:</strong> {{.TicketType}}</p>
    <p><strong>Entry from:</strong> {{if .StartTime}}{{.StartTime}}{{else}}Not specified{{end}}</p>
    {{- if .SecondaryCode}}
    <p><strong>Order / member code:</strong> {{.SecondaryCode}}</p>
    {{- end}}
  </div>
  {{- if .Extra}}
  <div style="margin-top: 20px; padding-top: 20px; border-top: 1px dashed #eee; font-size: 14px; color: #333; line-height: 1.6;">
    {{range .Extra}}<p>{{.}}</p>{{end}}
  </div>
  {{- end}}
  <hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;" />
  <p style="font-size: 12px; color: #999;">This message was sent from a send-only address.<br/>Issued by: {{.Issuer}}</p>
</div>`))

type ticketView struct {
	Heading       string
	Lead          string
	Name          string
	QR            htmltemplate.URL
	CheckinURL    string
	TicketType    string
	StartTime     string
	SecondaryCode string
	Extra         []string
	Issuer        string
}

// Subject returns the mail subject line for m.
func Subject(m TicketMail) string {
	if m.Kind == Application {
		return fmt.Sprintf("[%s] Your registration is complete", m.EventName)
	}
	return fmt.Sprintf("[%s] Your admission ticket", m.EventName)
}

// RenderTicket renders the HTML mail body. The QR image is embedded as a data
// URI so the mail works without any external image host.
func RenderTicket(m TicketMail) (string, error) {
	if !strings.HasPrefix(m.QRDataURI, "data:image/png;base64,") {
		return "", fmt.Errorf("render ticket: invalid QR data URI")
	}

	view := ticketView{
		Name:          m.Name,
		QR:            htmltemplate.URL(m.QRDataURI),
		CheckinURL:    m.CheckinURL,
		TicketType:    m.TicketType,
		StartTime:     m.StartTime,
		SecondaryCode: m.SecondaryCode,
		Issuer:        m.TenantName,
	}
	if view.Issuer == "" {
		view.Issuer = "Event System"
	}
	if m.Kind == Application {
		view.Heading = m.EventName + " registration confirmed"
		view.Lead = "Thank you for applying. Please present the QR code below at the venue."
	} else {
		view.Heading = m.EventName + " admission ticket"
		view.Lead = "Thank you for your registration. Please check your ticket details and present the QR code below at the venue."
	}
	if m.ExtraText != "" {
		view.Extra = strings.Split(strings.ReplaceAll(m.ExtraText, "\r\n", "\n"), "\n")
	}

	var buf bytes.Buffer
	if err := ticketTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render ticket: %w", err)
	}
	return buf.String(), nil
}
