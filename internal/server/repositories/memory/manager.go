// Package memory provides in-memory repositories behind the same
// RepositoryManager used in production. All repositories of one Manager share
// one store guarded by a single mutex, so every read-modify-write runs under
// the lock. The DBTX argument is ignored: transactions are not rolled back.
package memory

import (
	"context"
	"database/sql"
	"sync"

	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/auditevents"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/documents"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/sessions"
)

type store struct {
	mu sync.Mutex

	accounts map[string]*models.Account
	emails   map[string]string
	docs     map[string]*models.Document
	docOrder map[string]int
	events   []*models.AuditEvent
	sessions map[string]*models.Session

	seq int
}

type Manager struct {
	s *store

	// Failing hooks let tests inject errors per repository.
	AccountsErr    error
	DocumentsErr   error
	AuditEventsErr error
	SessionsErr    error
}

func NewManager() *Manager {
	return &Manager{s: &store{
		accounts: map[string]*models.Account{},
		emails:   map[string]string{},
		docs:     map[string]*models.Document{},
		docOrder: map[string]int{},
		sessions: map[string]*models.Session{},
	}}
}

func (m *Manager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *Manager) Accounts(dbx.DBTX) accounts.Repository {
	return &AccountsRepo{s: m.s, err: &m.AccountsErr}
}

func (m *Manager) Documents(dbx.DBTX) documents.Repository {
	return &DocumentsRepo{s: m.s, err: &m.DocumentsErr}
}

func (m *Manager) AuditEvents(dbx.DBTX) auditevents.Repository {
	return &AuditEventsRepo{s: m.s, err: &m.AuditEventsErr}
}

func (m *Manager) Sessions(dbx.DBTX) sessions.Repository {
	return &SessionsRepo{s: m.s, err: &m.SessionsErr}
}

var _ repomanager.RepositoryManager = (*Manager)(nil)
