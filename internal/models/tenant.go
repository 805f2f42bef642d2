package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Tenant struct {
	bun.BaseModel `bun:"table:tenants,alias:t"`

	ID            string    `bun:"id,pk" json:"id"`
	Name          string    `bun:"name,notnull" json:"name"`
	CompanyCode   string    `bun:"company_code,unique,notnull" json:"company_code"`
	OwnerID       string    `bun:"owner_id,notnull" json:"owner_id"`
	SMTPHost      string    `bun:"smtp_host,nullzero" json:"smtp_host,omitempty"`
	SMTPPort      int       `bun:"smtp_port,nullzero" json:"smtp_port,omitempty"`
	SMTPUser      string    `bun:"smtp_user,nullzero" json:"smtp_user,omitempty"`
	SMTPPassword  string    `bun:"smtp_password,nullzero" json:"-"`
	SMTPFromEmail string    `bun:"smtp_from_email,nullzero" json:"smtp_from_email,omitempty"`
	SMTPFromName  string    `bun:"smtp_from_name,nullzero" json:"smtp_from_name,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// SMTPSettings is the tenant-editable part of the mail credentials.
type SMTPSettings struct {
	Host      string `json:"smtp_host" validate:"required"`
	Port      int    `json:"smtp_port" validate:"required,gt=0,lte=65535"`
	User      string `json:"smtp_user" validate:"required"`
	Password  string `json:"smtp_password" validate:"required"`
	FromEmail string `json:"smtp_from_email" validate:"required,email"`
	FromName  string `json:"smtp_from_name"`
}

type TenantInput struct {
	Name        string `json:"name" validate:"required"`
	CompanyCode string `json:"company_code" validate:"omitempty,alphanum,min=4,max=16"`
	OwnerID     string `json:"owner_id" validate:"required"`
}
