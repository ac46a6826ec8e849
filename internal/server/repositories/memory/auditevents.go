package memory

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/server/models"
)

type AuditEventsRepo struct {
	s   *store
	err *error
}

func (r *AuditEventsRepo) Append(ctx context.Context, e *models.AuditEvent) error {
	if *r.err != nil {
		return fmt.Errorf("db error: %w", *r.err)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c := *e
	c.Details = append([]byte(nil), e.Details...)
	r.s.events = append(r.s.events, &c)
	return nil
}

func (r *AuditEventsRepo) ListRecent(ctx context.Context, limit int) ([]*models.AuditEvent, error) {
	return r.newest(limit, func(*models.AuditEvent) bool { return true })
}

func (r *AuditEventsRepo) ListByActor(ctx context.Context, actorID string, limit int) ([]*models.AuditEvent, error) {
	return r.newest(limit, func(e *models.AuditEvent) bool {
		return e.ActorID != nil && *e.ActorID == actorID
	})
}

func (r *AuditEventsRepo) newest(limit int, keep func(*models.AuditEvent) bool) ([]*models.AuditEvent, error) {
	if *r.err != nil {
		return nil, fmt.Errorf("db error: %w", *r.err)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []*models.AuditEvent
	for i := len(r.s.events) - 1; i >= 0 && len(result) < limit; i-- {
		if e := r.s.events[i]; keep(e) {
			c := *e
			result = append(result, &c)
		}
	}
	return result, nil
}

// Events returns every appended event in insertion order.
func (m *Manager) Events() []*models.AuditEvent {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return append([]*models.AuditEvent(nil), m.s.events...)
}
