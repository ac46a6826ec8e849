// Package documents stores document metadata and share grants.
package documents

import (
	"context"

	"github.com/dmitrijs2005/docvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, doc *models.Document) (*models.Document, error)
	// Get returns the document with its SharedWith set, or common.ErrorNotFound.
	Get(ctx context.Context, id string) (*models.Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Document, error)
	ListSharedWith(ctx context.Context, reviewerID string) ([]*models.Document, error)
	ListAll(ctx context.Context) ([]*models.Document, error)

	// Share and Revoke are idempotent.
	Share(ctx context.Context, documentID, reviewerID string) error
	Revoke(ctx context.Context, documentID, reviewerID string) error

	Delete(ctx context.Context, id string) error
}
