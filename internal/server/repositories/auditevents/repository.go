// Package auditevents persists the append-only audit trail.
package auditevents

import (
	"context"

	"github.com/dmitrijs2005/docvault/internal/server/models"
)

// Repository offers no update or delete: events are immutable once appended.
type Repository interface {
	Append(ctx context.Context, e *models.AuditEvent) error
	// ListRecent returns the latest limit events, newest first.
	ListRecent(ctx context.Context, limit int) ([]*models.AuditEvent, error)
	// ListByActor returns the latest limit events of one actor, newest first.
	ListByActor(ctx context.Context, actorID string, limit int) ([]*models.AuditEvent, error)
}
