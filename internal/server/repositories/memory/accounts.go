package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/accounts"
	"github.com/google/uuid"
)

type AccountsRepo struct {
	s   *store
	err *error
}

func (r *AccountsRepo) fail() error {
	if *r.err != nil {
		return fmt.Errorf("db error: %w", *r.err)
	}
	return nil
}

func (r *AccountsRepo) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	if err := r.fail(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.emails[a.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now().UTC()

	stored := cloneAccount(a)
	r.s.accounts[a.ID] = stored
	r.s.emails[a.Email] = a.ID
	return cloneAccount(stored), nil
}

func (r *AccountsRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if err := r.fail(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, ok := r.s.emails[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneAccount(r.s.accounts[id]), nil
}

func (r *AccountsRepo) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if err := r.fail(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneAccount(a), nil
}

func (r *AccountsRepo) ListByRole(ctx context.Context, role models.Role) ([]*models.Account, error) {
	if err := r.fail(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []*models.Account
	for _, a := range r.s.accounts {
		if a.Role == role {
			result = append(result, cloneAccount(a))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Email < result[j].Email })
	return result, nil
}

func (r *AccountsRepo) RecordFailure(ctx context.Context, id string, now time.Time, rule accounts.LockoutRule) (*accounts.FailureResult, error) {
	if err := r.fail(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if a.LockedAt(now) {
		return nil, common.ErrAccountLocked
	}

	res := rule.Apply(a.FailedAttempts, now)
	a.FailedAttempts = res.FailedAttempts
	a.LockUntil = res.LockUntil
	return res, nil
}

func (r *AccountsRepo) RecordSuccess(ctx context.Context, id string) error {
	if err := r.fail(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.FailedAttempts = 0
	a.LockUntil = nil
	return nil
}

func (r *AccountsRepo) SetMFASecret(ctx context.Context, id string, secret *models.MFASecret) error {
	if err := r.fail(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok || a.MFAEnabled {
		return common.ErrMFAAlreadyEnabled
	}
	s := *secret
	a.MFASecret = &s
	a.MFALastStep = nil
	return nil
}

func (r *AccountsRepo) EnableMFA(ctx context.Context, id string, step int64) error {
	if err := r.fail(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok || a.MFAEnabled || a.MFASecret == nil {
		return common.ErrMFANotInitiated
	}
	a.MFAEnabled = true
	a.MFALastStep = &step
	return nil
}

func (r *AccountsRepo) ConsumeMFAStep(ctx context.Context, id string, step int64) (bool, error) {
	if err := r.fail(); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return false, nil
	}
	if a.MFALastStep != nil && *a.MFALastStep >= step {
		return false, nil
	}
	a.MFALastStep = &step
	return true, nil
}

func cloneAccount(a *models.Account) *models.Account {
	c := *a
	if a.MFASecret != nil {
		s := *a.MFASecret
		c.MFASecret = &s
	}
	if a.MFALastStep != nil {
		v := *a.MFALastStep
		c.MFALastStep = &v
	}
	if a.LockUntil != nil {
		v := *a.LockUntil
		c.LockUntil = &v
	}
	return &c
}
