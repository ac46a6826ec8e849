// Package audit records the append-only trail of security-relevant actions.
// Recording never fails the operation being audited: a store failure is
// logged with the full event and counted.
package audit

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/google/uuid"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, e *models.AuditEvent) error
}

// Entry is what callers hand to Record.
type Entry struct {
	ActorID    string
	ActorEmail string
	Action     models.Action
	Origin     models.Origin
	Details    Details
}

type Trail struct {
	store   Store
	logger  logging.Logger
	now     func() time.Time
	dropped atomic.Int64
}

func NewTrail(store Store, logger logging.Logger) *Trail {
	return &Trail{store: store, logger: logger.With("module", "audit"), now: time.Now}
}

// Record appends one event.
func (t *Trail) Record(ctx context.Context, e Entry) {
	event := &models.AuditEvent{
		ID:        uuid.NewString(),
		ActorID:   optional(e.ActorID),
		Action:    e.Action,
		Timestamp: t.now().UTC(),
		Origin:    e.Origin,
	}
	event.ActorEmail = optional(e.ActorEmail)

	t.log(ctx, e)

	details, err := Encode(e.Action, e.Details)
	if err == nil {
		event.Details = details
		err = t.store.Append(ctx, event)
	}
	if err != nil {
		t.dropped.Add(1)
		t.logger.Error(ctx, "audit write failed",
			"error", err,
			"event_id", event.ID,
			"action", e.Action,
			"actor_id", e.ActorID,
			"actor_email", e.ActorEmail,
			"origin_address", e.Origin.Address,
			"origin_agent", e.Origin.Agent,
			"timestamp", event.Timestamp,
			"details", e.Details,
		)
	}
}

// Dropped is the number of events that could not be stored.
func (t *Trail) Dropped() int64 {
	return t.dropped.Load()
}

func (t *Trail) log(ctx context.Context, e Entry) {
	args := []any{"action", e.Action, "actor_id", e.ActorID, "origin_address", e.Origin.Address}

	switch e.Action {
	case models.ActionFileTampered:
		t.logger.Error(ctx, "security event", args...)
	case models.ActionLoginFailure, models.ActionMFAFailure, models.ActionRegisterFailure, models.ActionUnauthorizedAccess:
		t.logger.Warn(ctx, "security event", args...)
	default:
		t.logger.Info(ctx, "security event", args...)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
