package models

// ImportRow is one CSV/JSON row consumed by the bulk ticket import.
type ImportRow struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	OrderID      string `json:"order_id,omitempty"`
	EmployeeID   string `json:"employee_id,omitempty"`
	TicketType   string `json:"ticket_type,omitempty"`
	StartTime    string `json:"start_time,omitempty"`
	ProductName  string `json:"product_name,omitempty"`
	Price        string `json:"price,omitempty"`
	Quantity     int    `json:"quantity,omitempty"`
	MasterDataID string `json:"master_data_id,omitempty"`
}

type ImportResult struct {
	Inserted         int `json:"inserted"`
	SkippedInvalid   int `json:"skipped_invalid"`
	SkippedDuplicate int `json:"skipped_duplicate"`
	MailQueued       int `json:"mail_queued"`
}

type PreviewRow struct {
	Row          ImportRow `json:"row"`
	Member       bool      `json:"member"`
	MasterDataID string    `json:"master_data_id,omitempty"`
	TicketType   string    `json:"ticket_type"`
	StartTime    string    `json:"start_time,omitempty"`
	Valid        bool      `json:"valid"`
	Duplicate    bool      `json:"duplicate"`
}

// ApplicationRequest is the public self-service registration form.
type ApplicationRequest struct {
	EventCode   string `json:"event_code" validate:"required"`
	CompanyCode string `json:"company_code,omitempty"`
	EmployeeID  string `json:"employee_id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required"`
	Phone       string `json:"phone,omitempty"`
	// Honeypot is rendered hidden; bots fill it.
	Honeypot string `json:"fax_number,omitempty"`
}

// TicketView is the public ticket page payload.
type TicketView struct {
	Token      string `json:"token"`
	Name       string `json:"name"`
	EventName  string `json:"event_name"`
	TicketType string `json:"ticket_type"`
	StartTime  string `json:"start_time,omitempty"`
	Status     string `json:"status"`
	CheckinURL string `json:"checkin_url"`
	QRDataURI  string `json:"qr_data_uri"`
}
