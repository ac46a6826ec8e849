package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/server/models"
)

type SessionsRepo struct {
	s   *store
	err *error
}

func (r *SessionsRepo) fail() error {
	if *r.err != nil {
		return fmt.Errorf("db error: %w", *r.err)
	}
	return nil
}

func (r *SessionsRepo) Create(ctx context.Context, s *models.Session) error {
	if err := r.fail(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.sessions[s.ID]; ok {
		return common.ErrorAlreadyExists
	}
	c := *s
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	r.s.sessions[s.ID] = &c
	return nil
}

func (r *SessionsRepo) Find(ctx context.Context, id string) (*models.Session, error) {
	if err := r.fail(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	s, ok := r.s.sessions[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *s
	return &c, nil
}

func (r *SessionsRepo) Delete(ctx context.Context, id string) error {
	if err := r.fail(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.sessions, id)
	return nil
}

func (r *SessionsRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := r.fail(); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, s := range r.s.sessions {
		if !s.ExpiresAt.After(now) {
			delete(r.s.sessions, id)
			n++
		}
	}
	return n, nil
}
