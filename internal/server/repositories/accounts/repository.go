// Package accounts stores credentials, lockout counters and MFA state.
package accounts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/docvault/internal/server/models"
)

type Repository interface {
	// Create inserts a new account. A duplicate email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	ListByRole(ctx context.Context, role models.Role) ([]*models.Account, error)

	// RecordFailure atomically increments the failure counter and, once the
	// rule's threshold is reached, sets the lock. It returns
	// common.ErrAccountLocked if the account is already locked at now.
	RecordFailure(ctx context.Context, id string, now time.Time, rule LockoutRule) (*FailureResult, error)
	// RecordSuccess resets the counter and clears the lock.
	RecordSuccess(ctx context.Context, id string) error

	// SetMFASecret stores a pending secret. Fails with
	// common.ErrMFAAlreadyEnabled once MFA is enabled.
	SetMFASecret(ctx context.Context, id string, secret *models.MFASecret) error
	// EnableMFA marks a pending secret as confirmed and records step.
	EnableMFA(ctx context.Context, id string, step int64) error
	// ConsumeMFAStep advances the last accepted step. It reports false
	// when step is not newer than the stored one.
	ConsumeMFAStep(ctx context.Context, id string, step int64) (bool, error)
}

type FailureResult struct {
	FailedAttempts int
	LockUntil      *time.Time
}

// LockedNow reports whether this failure triggered the lock.
func (r *FailureResult) LockedNow() bool {
	return r.LockUntil != nil
}
