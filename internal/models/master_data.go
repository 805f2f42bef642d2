package models

import (
	"time"

	"github.com/uptrace/bun"
)

// MasterDataRecord is one roster entry of a tenant.
type MasterDataRecord struct {
	bun.BaseModel `bun:"table:master_data,alias:md"`

	ID         string    `bun:"id,pk" json:"id"`
	TenantID   string    `bun:"tenant_id,notnull,unique:tenant_employee" json:"tenant_id"`
	EmployeeID string    `bun:"employee_id,notnull,unique:tenant_employee" json:"employee_id"`
	Name       string    `bun:"name,notnull" json:"name"`
	Email      string    `bun:"email,nullzero" json:"email,omitempty"`
	CreatedAt  time.Time `bun:"created_at,notnull" json:"created_at"`
}

type RosterRow struct {
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
}

type RosterImportResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}
