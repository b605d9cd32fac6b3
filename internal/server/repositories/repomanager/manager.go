package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/credeval/internal/dbx"
	"github.com/dmitrijs2005/credeval/internal/server/repositories/assignments"
	"github.com/dmitrijs2005/credeval/internal/server/repositories/countries"
	"github.com/dmitrijs2005/credeval/internal/server/repositories/documents"
	"github.com/dmitrijs2005/credeval/internal/server/repositories/evaluations"
	"github.com/dmitrijs2005/credeval/internal/server/repositories/revisions"
)

// RepositoryManager vends repositories bound to a *sql.DB or a *sql.Tx, so
// services can run several of them in one transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Evaluations(db dbx.DBTX) evaluations.Repository
	Documents(db dbx.DBTX) documents.Repository
	Countries(db dbx.DBTX) countries.Repository
	Revisions(db dbx.DBTX) revisions.Repository
	Assignments(db dbx.DBTX) assignments.Repository
}
