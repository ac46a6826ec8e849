package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/dmitrijs2005/docvault/internal/server/audit"
	"github.com/dmitrijs2005/docvault/internal/server/mfa"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/repomanager"
)

// MFAService drives TOTP enrollment: NotEnrolled → PendingVerification →
// Enrolled.
type MFAService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	totp        *mfa.TOTP
	trail       *audit.Trail
	logger      logging.Logger
}

func NewMFAService(db *sql.DB, m repomanager.RepositoryManager, totp *mfa.TOTP, trail *audit.Trail, logger logging.Logger) *MFAService {
	return &MFAService{
		db:          db,
		repomanager: m,
		totp:        totp,
		trail:       trail,
		logger:      logger.With("module", "mfa"),
	}
}

// BeginEnrollment stores a fresh secret on the account and returns it for
// QR rendering. Starting again before confirmation replaces the secret.
func (s *MFAService) BeginEnrollment(ctx context.Context, origin models.Origin, p models.Principal) (*models.MFASecret, error) {
	repo := s.repomanager.Accounts(s.db)

	account, err := repo.GetByID(ctx, p.AccountID)
	if err != nil {
		return nil, storeErr(err)
	}
	if account.MFAEnabled {
		s.record(ctx, origin, p, models.ActionMFAFailure, "already enabled")
		return nil, common.ErrMFAAlreadyEnabled
	}

	secret, err := s.totp.Generate(account.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: generate secret: %v", common.ErrorInternal, err)
	}
	if err := repo.SetMFASecret(ctx, account.ID, secret); err != nil {
		return nil, storeErr(err)
	}

	s.logger.Info(ctx, "mfa enrollment started", "account_id", account.ID)
	return secret, nil
}

// ConfirmEnrollment verifies the first code against the pending secret and
// enables MFA permanently.
func (s *MFAService) ConfirmEnrollment(ctx context.Context, origin models.Origin, p models.Principal, code string) error {
	repo := s.repomanager.Accounts(s.db)

	account, err := repo.GetByID(ctx, p.AccountID)
	if err != nil {
		return storeErr(err)
	}
	if account.MFAEnabled {
		s.record(ctx, origin, p, models.ActionMFAFailure, "already enabled")
		return common.ErrMFAAlreadyEnabled
	}
	if !account.MFAPending() {
		s.record(ctx, origin, p, models.ActionMFAFailure, "not initiated")
		return common.ErrMFANotInitiated
	}

	step, ok := s.totp.Verify(account.MFASecret, code, nil)
	if !ok {
		s.record(ctx, origin, p, models.ActionMFAFailure, "invalid code")
		return common.ErrInvalidMFACode
	}

	if err := repo.EnableMFA(ctx, account.ID, step); err != nil {
		return storeErr(err)
	}

	s.record(ctx, origin, p, models.ActionMFASuccess, "")
	return nil
}

func (s *MFAService) record(ctx context.Context, origin models.Origin, p models.Principal, action models.Action, reason string) {
	s.trail.Record(ctx, audit.Entry{
		ActorID:    p.AccountID,
		ActorEmail: p.Email,
		Action:     action,
		Origin:     origin,
		Details:    audit.MFADetails{Stage: audit.StageEnrollment, Reason: reason},
	})
}
