package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/google/uuid"
)

type DocumentsRepo struct {
	s   *store
	err *error
}

func (r *DocumentsRepo) fail() error {
	if *r.err != nil {
		return fmt.Errorf("db error: %w", *r.err)
	}
	return nil
}

func (r *DocumentsRepo) Create(ctx context.Context, d *models.Document) (*models.Document, error) {
	if err := r.fail(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.seq++
	d.ID = uuid.NewString()
	d.CreatedAt = time.Now().UTC()
	d.SharedWith = nil

	r.s.docs[d.ID] = cloneDocument(d)
	r.s.docOrder[d.ID] = r.s.seq
	return cloneDocument(d), nil
}

func (r *DocumentsRepo) Get(ctx context.Context, id string) (*models.Document, error) {
	if err := r.fail(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.docs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneDocument(d), nil
}

func (r *DocumentsRepo) list(keep func(*models.Document) bool) ([]*models.Document, error) {
	if err := r.fail(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []*models.Document
	for _, d := range r.s.docs {
		if keep(d) {
			result = append(result, cloneDocument(d))
		}
	}
	// newest first
	sort.Slice(result, func(i, j int) bool {
		return r.s.docOrder[result[i].ID] > r.s.docOrder[result[j].ID]
	})
	return result, nil
}

func (r *DocumentsRepo) ListByOwner(ctx context.Context, ownerID string) ([]*models.Document, error) {
	return r.list(func(d *models.Document) bool { return d.OwnerID == ownerID })
}

func (r *DocumentsRepo) ListSharedWith(ctx context.Context, reviewerID string) ([]*models.Document, error) {
	return r.list(func(d *models.Document) bool { return d.IsSharedWith(reviewerID) })
}

func (r *DocumentsRepo) ListAll(ctx context.Context) ([]*models.Document, error) {
	return r.list(func(*models.Document) bool { return true })
}

func (r *DocumentsRepo) Share(ctx context.Context, documentID, reviewerID string) error {
	if err := r.fail(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.docs[documentID]
	if !ok {
		return common.ErrorNotFound
	}
	if !d.IsSharedWith(reviewerID) {
		d.SharedWith = append(d.SharedWith, reviewerID)
	}
	return nil
}

func (r *DocumentsRepo) Revoke(ctx context.Context, documentID, reviewerID string) error {
	if err := r.fail(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.docs[documentID]
	if !ok {
		return common.ErrorNotFound
	}
	kept := d.SharedWith[:0]
	for _, id := range d.SharedWith {
		if id != reviewerID {
			kept = append(kept, id)
		}
	}
	d.SharedWith = kept
	return nil
}

func (r *DocumentsRepo) Delete(ctx context.Context, id string) error {
	if err := r.fail(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.docs[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.docs, id)
	delete(r.s.docOrder, id)
	return nil
}

func cloneDocument(d *models.Document) *models.Document {
	c := *d
	c.SharedWith = append([]string(nil), d.SharedWith...)
	return &c
}
