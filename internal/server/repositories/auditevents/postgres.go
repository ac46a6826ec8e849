package auditevents

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/server/models"
)

const selectEvents = `SELECT id, actor_id, actor_email, action, occurred_at, origin_address, origin_agent, details
		 FROM audit_events`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, e *models.AuditEvent) error {
	query :=
		`INSERT INTO audit_events (id, actor_id, actor_email, action, occurred_at, origin_address, origin_agent, details)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)`

	details := string(e.Details)
	if details == "" {
		details = "{}"
	}

	_, err := r.db.ExecContext(ctx, query,
		e.ID, nullable(e.ActorID), nullable(e.ActorEmail), string(e.Action), e.Timestamp,
		e.Origin.Address, e.Origin.Agent, details)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]*models.AuditEvent, error) {
	return r.query(ctx, selectEvents+`
		 ORDER BY occurred_at DESC, id
		 LIMIT $1`, limit)
}

func (r *PostgresRepository) ListByActor(ctx context.Context, actorID string, limit int) ([]*models.AuditEvent, error) {
	return r.query(ctx, selectEvents+`
		 WHERE actor_id = $1
		 ORDER BY occurred_at DESC, id
		 LIMIT $2`, actorID, limit)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.AuditEvent
	for rows.Next() {
		var (
			e            models.AuditEvent
			action       string
			actorID      sql.NullString
			actorEmail   sql.NullString
			detailsBytes []byte
		)
		if err := rows.Scan(&e.ID, &actorID, &actorEmail, &action, &e.Timestamp,
			&e.Origin.Address, &e.Origin.Agent, &detailsBytes); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		e.Action = models.Action(action)
		if actorID.Valid {
			e.ActorID = &actorID.String
		}
		if actorEmail.Valid {
			e.ActorEmail = &actorEmail.String
		}
		e.Details = detailsBytes
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
