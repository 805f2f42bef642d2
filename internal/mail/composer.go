package mail

import (
	"fmt"
	"strings"

	mailtemplate "ms-checkin/internal/mail/template"
	"ms-checkin/internal/models"
	"ms-checkin/internal/qr"
)

// Composer turns a participation into a ready-to-queue ticket mail.
type Composer struct {
	BaseURL string
	QR      *qr.Generator
}

func NewComposer(baseURL string, gen *qr.Generator) *Composer {
	return &Composer{BaseURL: strings.TrimRight(baseURL, "/"), QR: gen}
}

// CheckinURL is the value encoded in the ticket QR code. The check-in engine
// strips everything up to /checkin/ when it is scanned.
func (c *Composer) CheckinURL(token string) string {
	return c.BaseURL + "/checkin/" + token
}

func (c *Composer) TicketJob(kind mailtemplate.Kind, tenant *models.Tenant, event *models.Event, p *models.Participation) (models.MailJob, error) {
	if p.Email == "" {
		return models.MailJob{}, fmt.Errorf("participation %s has no email", p.ID)
	}

	url, dataURI, err := c.TicketQR(p.CheckinToken)
	if err != nil {
		return models.MailJob{}, err
	}

	m := mailtemplate.TicketMail{
		Kind:          kind,
		EventName:     event.Name,
		TenantName:    tenant.Name,
		Name:          p.DisplayName(),
		TicketType:    p.TicketType,
		StartTime:     p.StartTime,
		SecondaryCode: p.SecondaryCode,
		CheckinURL:    url,
		QRDataURI:     dataURI,
		ExtraText:     event.EmailTemplate,
	}
	body, err := mailtemplate.RenderTicket(m)
	if err != nil {
		return models.MailJob{}, err
	}

	return models.MailJob{
		TenantID:        tenant.ID,
		ParticipationID: p.ID,
		ToEmail:         p.Email,
		Subject:         mailtemplate.Subject(m),
		Body:            body,
	}, nil
}

// TicketQR returns the check-in URL of token and its QR code as a data URI.
func (c *Composer) TicketQR(token string) (string, string, error) {
	url := c.CheckinURL(token)
	dataURI, err := c.QR.DataURI(url)
	if err != nil {
		return "", "", err
	}
	return url, dataURI, nil
}
