// Package dbtest opens throwaway SQLite databases for package tests.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"ms-checkin/internal/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// AllModels lists every table of the schema in creation order.
var AllModels = []interface{}{
	(*models.Tenant)(nil),
	(*models.Event)(nil),
	(*models.MasterDataRecord)(nil),
	(*models.Participation)(nil),
	(*models.MailJob)(nil),
}

// Open returns an in-memory database private to t with tables for the given
// models. With no models the full schema is created.
func Open(t *testing.T, tables ...interface{}) *bun.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	if len(tables) == 0 {
		tables = AllModels
	}
	ctx := context.Background()
	for _, m := range tables {
		if _, err := bunDB.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			t.Fatalf("Failed to create table for %T: %v", m, err)
		}
	}
	return bunDB
}
