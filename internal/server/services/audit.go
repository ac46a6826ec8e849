package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/dmitrijs2005/docvault/internal/server/policy"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/repomanager"
)

const (
	// AllEventsLimit caps the administrator view of the trail.
	AllEventsLimit = 100
	// OwnEventsLimit caps everyone else's view of their own events.
	OwnEventsLimit = 50
)

type AuditService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewAuditService(db *sql.DB, m repomanager.RepositoryManager) *AuditService {
	return &AuditService{db: db, repomanager: m}
}

// List returns the newest events p may see.
func (s *AuditService) List(ctx context.Context, p models.Principal) ([]*models.AuditEvent, error) {
	repo := s.repomanager.AuditEvents(s.db)

	var (
		events []*models.AuditEvent
		err    error
	)
	if policy.CanListAll(p) {
		events, err = repo.ListRecent(ctx, AllEventsLimit)
	} else {
		events, err = repo.ListByActor(ctx, p.AccountID, OwnEventsLimit)
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return events, nil
}
