package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/server/models"
)

// selectDocuments joins share grants so a document and its SharedWith set
// come back in one query; rows are folded per document.
const selectDocuments = `SELECT d.id, d.owner_id, d.original_name, d.mime_type, d.size_bytes, d.storage_key,
		 d.content_hash, d.signature, d.created_at, COALESCE(s.reviewer_id::text, '')
		 FROM documents d
		 LEFT JOIN document_shares s ON s.document_id = d.id`

const orderDocuments = ` ORDER BY d.created_at DESC, d.id, s.created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, doc *models.Document) (*models.Document, error) {
	query :=
		`INSERT INTO documents (owner_id, original_name, mime_type, size_bytes, storage_key, content_hash, signature)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		doc.OwnerID, doc.OriginalName, doc.MimeType, doc.SizeBytes, doc.StorageKey, doc.ContentHash, doc.Signature).
		Scan(&doc.ID, &doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return doc, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Document, error) {
	docs, err := r.query(ctx, selectDocuments+` WHERE d.id = $1`+orderDocuments, id)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, common.ErrorNotFound
	}
	return docs[0], nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Document, error) {
	return r.query(ctx, selectDocuments+` WHERE d.owner_id = $1`+orderDocuments, ownerID)
}

func (r *PostgresRepository) ListSharedWith(ctx context.Context, reviewerID string) ([]*models.Document, error) {
	return r.query(ctx, selectDocuments+`
		 WHERE d.id IN (SELECT document_id FROM document_shares WHERE reviewer_id = $1)`+orderDocuments, reviewerID)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]*models.Document, error) {
	return r.query(ctx, selectDocuments+orderDocuments)
}

func (r *PostgresRepository) Share(ctx context.Context, documentID, reviewerID string) error {
	query :=
		`INSERT INTO document_shares (document_id, reviewer_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, documentID, reviewerID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, documentID, reviewerID string) error {
	query :=
		`DELETE FROM document_shares
		 WHERE document_id = $1 AND reviewer_id = $2`
	if _, err := r.db.ExecContext(ctx, query, documentID, reviewerID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query :=
		`DELETE FROM documents
		 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.Document, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var (
		result []*models.Document
		byID   = map[string]*models.Document{}
	)
	for rows.Next() {
		var (
			d        models.Document
			reviewer string
		)
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.OriginalName, &d.MimeType, &d.SizeBytes, &d.StorageKey,
			&d.ContentHash, &d.Signature, &d.CreatedAt, &reviewer); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, common.ErrorNotFound
			}
			return nil, fmt.Errorf("db error: %w", err)
		}

		doc, ok := byID[d.ID]
		if !ok {
			doc = &d
			byID[d.ID] = doc
			result = append(result, doc)
		}
		if reviewer != "" {
			doc.SharedWith = append(doc.SharedWith, reviewer)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
