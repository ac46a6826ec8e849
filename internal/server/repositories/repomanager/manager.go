package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/auditevents"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/documents"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/sessions"
)

// RepositoryManager vends repositories bound to a *sql.DB or *sql.Tx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Documents(db dbx.DBTX) documents.Repository
	AuditEvents(db dbx.DBTX) auditevents.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
