// Package repomanager binds repository implementations to a database handle
// and owns the schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/paleolab/internal/dbx"
	"github.com/dmitrijs2005/paleolab/internal/server/repositories/cores"
	"github.com/dmitrijs2005/paleolab/internal/server/repositories/employees"
	"github.com/dmitrijs2005/paleolab/internal/server/repositories/sessions"
)

// RepositoryManager vends repositories bound to a dbx.DBTX, so the same
// service code runs against *sql.DB or inside a *sql.Tx.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Employees(db dbx.DBTX) employees.Repository
	Cores(db dbx.DBTX) cores.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
