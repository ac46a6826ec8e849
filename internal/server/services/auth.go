package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/cryptox"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/dmitrijs2005/docvault/internal/server/audit"
	"github.com/dmitrijs2005/docvault/internal/server/auth"
	"github.com/dmitrijs2005/docvault/internal/server/config"
	"github.com/dmitrijs2005/docvault/internal/server/mfa"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/repomanager"
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 8

// LockoutPolicy is the escalating lockout schedule applied to failed
// password and one-time code attempts.
type LockoutPolicy = accounts.LockoutRule

type RegisterInput struct {
	Email    string
	Password string
	Role     models.Role
	// AllowAdministrator permits creating administrator accounts. Only
	// operator tooling sets it.
	AllowAdministrator bool
}

// LoginResult is either a session (MFARequired false) or an MFA-pending
// token that can only be exchanged through CompleteLogin.
type LoginResult struct {
	Token       *auth.Token
	MFARequired bool
	Principal   models.Principal
}

// Identity is the caller behind a valid session token.
type Identity struct {
	Principal models.Principal
	SessionID string
	ExpiresAt time.Time
}

// AuthService implements registration, the login state machine and
// session management.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      cryptox.PasswordHasher
	totp        *mfa.TOTP
	trail       *audit.Trail
	logger      logging.Logger

	lockout    LockoutPolicy
	jwtSecret  []byte
	sessionTTL time.Duration
	mfaTTL     time.Duration

	// dummyHash is compared against for unknown emails so that both paths
	// pay for one bcrypt comparison.
	dummyHash string
	now       func() time.Time
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	totp *mfa.TOTP, trail *audit.Trail, logger logging.Logger) (*AuthService, error) {

	hasher := cryptox.NewBcryptHasher(cfg.BcryptCost)
	dummy, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, err
	}
	dummyHash, err := hasher.Hash([]byte(dummy))
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}

	return &AuthService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		totp:        totp,
		trail:       trail,
		logger:      logger.With("module", "auth"),
		lockout: LockoutPolicy{
			Threshold: cfg.LockoutThreshold,
			Base:      cfg.LockoutBaseDuration,
			Max:       cfg.LockoutMaxDuration,
		},
		jwtSecret:  []byte(cfg.SecretKey),
		sessionTTL: cfg.SessionTokenValidityDuration,
		mfaTTL:     cfg.MFATokenValidityDuration,
		dummyHash:  dummyHash,
		now:        time.Now,
	}, nil
}

// Register creates an account. Validation and duplicate-email failures are
// audited as REGISTER_FAILURE.
func (s *AuthService) Register(ctx context.Context, origin models.Origin, in RegisterInput) (*models.Account, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		s.registerFailed(ctx, origin, in.Email, in.Role, "invalid email")
		return nil, err
	}
	if len(in.Password) < MinPasswordLength {
		s.registerFailed(ctx, origin, email, in.Role, "weak password")
		return nil, common.ErrWeakPassword
	}
	if !in.Role.Valid() || (in.Role == models.RoleAdministrator && !in.AllowAdministrator) {
		s.registerFailed(ctx, origin, email, in.Role, "invalid role")
		return nil, common.ErrInvalidRole
	}

	hash, err := s.hasher.Hash([]byte(in.Password))
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %v", common.ErrorInternal, err)
	}

	account, err := s.repomanager.Accounts(s.db).Create(ctx, &models.Account{
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
	})
	if err != nil {
		reason := "store failure"
		if errors.Is(err, common.ErrorAlreadyExists) {
			reason = "email already registered"
		}
		s.registerFailed(ctx, origin, email, in.Role, reason)
		return nil, storeErr(err)
	}

	s.trail.Record(ctx, audit.Entry{
		ActorID:    account.ID,
		ActorEmail: account.Email,
		Action:     models.ActionRegisterSuccess,
		Origin:     origin,
		Details:    audit.RegistrationDetails{Role: account.Role},
	})
	return account, nil
}

func (s *AuthService) registerFailed(ctx context.Context, origin models.Origin, email string, role models.Role, reason string) {
	s.trail.Record(ctx, audit.Entry{
		ActorEmail: email,
		Action:     models.ActionRegisterFailure,
		Origin:     origin,
		Details:    audit.RegistrationDetails{Role: role, Reason: reason},
	})
}

// Login checks the password. Accounts with MFA enabled get an MFA-pending
// token instead of a session.
func (s *AuthService) Login(ctx context.Context, origin models.Origin, email, password string) (*LoginResult, error) {
	repo := s.repomanager.Accounts(s.db)

	normalized, err := normalizeEmail(email)
	if err != nil {
		normalized = email
	}

	account, err := repo.GetByEmail(ctx, normalized)
	if errors.Is(err, common.ErrorNotFound) {
		s.hasher.Compare([]byte(password), s.dummyHash)
		s.loginFailed(ctx, origin, "", normalized, audit.LoginDetails{Reason: "unknown email"})
		return nil, common.ErrInvalidCredentials
	}
	if err != nil {
		return nil, storeErr(err)
	}

	now := s.now()
	if account.LockedAt(now) {
		s.loginFailed(ctx, origin, account.ID, account.Email, audit.LoginDetails{
			Reason:         "account locked",
			FailedAttempts: account.FailedAttempts,
			Locked:         true,
			LockedUntil:    account.LockUntil,
		})
		return nil, common.ErrAccountLocked
	}

	if !s.hasher.Compare([]byte(password), account.PasswordHash) {
		res, err := repo.RecordFailure(ctx, account.ID, now, s.lockout)
		if errors.Is(err, common.ErrAccountLocked) {
			s.loginFailed(ctx, origin, account.ID, account.Email, audit.LoginDetails{Reason: "account locked", Locked: true})
			return nil, common.ErrAccountLocked
		}
		if err != nil {
			return nil, storeErr(err)
		}
		s.loginFailed(ctx, origin, account.ID, account.Email, audit.LoginDetails{
			Reason:         "invalid password",
			FailedAttempts: res.FailedAttempts,
			Locked:         res.LockedNow(),
			LockedUntil:    res.LockUntil,
		})
		return nil, common.ErrInvalidCredentials
	}

	// With MFA on, the counter is reset only once the code is verified.
	if account.MFAEnabled {
		token, err := auth.GenerateToken(account.ID, auth.ScopeMFA, s.jwtSecret, s.mfaTTL)
		if err != nil {
			return nil, fmt.Errorf("%w: sign token: %v", common.ErrorInternal, err)
		}
		s.trail.Record(ctx, audit.Entry{
			ActorID:    account.ID,
			ActorEmail: account.Email,
			Action:     models.ActionLoginSuccess,
			Origin:     origin,
			Details:    audit.LoginDetails{Extra: map[string]any{"mfa_pending": true}},
		})
		return &LoginResult{Token: token, MFARequired: true, Principal: account.Principal()}, nil
	}

	if err := repo.RecordSuccess(ctx, account.ID); err != nil {
		return nil, storeErr(err)
	}

	token, err := s.createSession(ctx, account)
	if err != nil {
		return nil, err
	}
	s.trail.Record(ctx, audit.Entry{
		ActorID:    account.ID,
		ActorEmail: account.Email,
		Action:     models.ActionLoginSuccess,
		Origin:     origin,
		Details:    audit.LoginDetails{},
	})
	return &LoginResult{Token: token, Principal: account.Principal()}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, origin models.Origin, accountID, email string, d audit.LoginDetails) {
	s.trail.Record(ctx, audit.Entry{
		ActorID:    accountID,
		ActorEmail: email,
		Action:     models.ActionLoginFailure,
		Origin:     origin,
		Details:    d,
	})
}

// CompleteLogin exchanges an MFA-pending token and a one-time code for a
// session. Wrong codes count towards the lockout like wrong passwords.
func (s *AuthService) CompleteLogin(ctx context.Context, origin models.Origin, mfaToken, code string) (*LoginResult, error) {
	claims, err := auth.ParseToken(mfaToken, s.jwtSecret, auth.ScopeMFA)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Accounts(s.db)
	account, err := repo.GetByID(ctx, claims.AccountID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrInvalidToken
	}
	if err != nil {
		return nil, storeErr(err)
	}
	if !account.MFAEnabled {
		return nil, common.ErrInvalidToken
	}

	now := s.now()
	if account.LockedAt(now) {
		s.mfaFailed(ctx, origin, account, audit.StageLogin, "account locked", nil)
		return nil, common.ErrAccountLocked
	}

	step, ok := s.totp.Verify(account.MFASecret, code, account.MFALastStep)
	if ok {
		ok, err = repo.ConsumeMFAStep(ctx, account.ID, step)
		if err != nil {
			return nil, storeErr(err)
		}
	}
	if !ok {
		res, err := repo.RecordFailure(ctx, account.ID, now, s.lockout)
		if errors.Is(err, common.ErrAccountLocked) {
			s.mfaFailed(ctx, origin, account, audit.StageLogin, "account locked", nil)
			return nil, common.ErrAccountLocked
		}
		if err != nil {
			return nil, storeErr(err)
		}
		s.mfaFailed(ctx, origin, account, audit.StageLogin, "invalid code", map[string]any{
			"failed_attempts": res.FailedAttempts,
			"locked":          res.LockedNow(),
		})
		return nil, common.ErrInvalidMFACode
	}

	if err := repo.RecordSuccess(ctx, account.ID); err != nil {
		return nil, storeErr(err)
	}

	token, err := s.createSession(ctx, account)
	if err != nil {
		return nil, err
	}
	s.trail.Record(ctx, audit.Entry{
		ActorID:    account.ID,
		ActorEmail: account.Email,
		Action:     models.ActionMFASuccess,
		Origin:     origin,
		Details:    audit.MFADetails{Stage: audit.StageLogin},
	})
	return &LoginResult{Token: token, Principal: account.Principal()}, nil
}

func (s *AuthService) mfaFailed(ctx context.Context, origin models.Origin, account *models.Account, stage audit.MFAStage, reason string, extra map[string]any) {
	s.trail.Record(ctx, audit.Entry{
		ActorID:    account.ID,
		ActorEmail: account.Email,
		Action:     models.ActionMFAFailure,
		Origin:     origin,
		Details:    audit.MFADetails{Stage: stage, Reason: reason, Extra: extra},
	})
}

func (s *AuthService) createSession(ctx context.Context, account *models.Account) (*auth.Token, error) {
	token, err := auth.GenerateToken(account.ID, auth.ScopeSession, s.jwtSecret, s.sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: sign token: %v", common.ErrorInternal, err)
	}
	err = s.repomanager.Sessions(s.db).Create(ctx, &models.Session{
		ID:        token.ID,
		AccountID: account.ID,
		ExpiresAt: token.ExpiresAt,
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return token, nil
}

// Session resolves a session token to its caller. Tokens of another scope,
// revoked sessions and deleted accounts are rejected.
func (s *AuthService) Session(ctx context.Context, token string) (*Identity, error) {
	claims, err := auth.ParseToken(token, s.jwtSecret, auth.ScopeSession)
	if err != nil {
		return nil, err
	}

	session, err := s.repomanager.Sessions(s.db).Find(ctx, claims.ID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrSessionRevoked
	}
	if err != nil {
		return nil, storeErr(err)
	}
	if !s.now().Before(session.ExpiresAt) || session.AccountID != claims.AccountID {
		return nil, common.ErrSessionRevoked
	}

	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, session.AccountID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrSessionRevoked
	}
	if err != nil {
		return nil, storeErr(err)
	}

	return &Identity{Principal: account.Principal(), SessionID: session.ID, ExpiresAt: session.ExpiresAt}, nil
}

// Logout revokes the caller's session.
func (s *AuthService) Logout(ctx context.Context, origin models.Origin, id *Identity) error {
	if err := s.repomanager.Sessions(s.db).Delete(ctx, id.SessionID); err != nil {
		return storeErr(err)
	}
	s.trail.Record(ctx, audit.Entry{
		ActorID:    id.Principal.AccountID,
		ActorEmail: id.Principal.Email,
		Action:     models.ActionLogout,
		Origin:     origin,
		Details:    audit.SessionDetails{SessionID: id.SessionID},
	})
	return nil
}

// ListReviewers returns the accounts an owner may share documents with.
func (s *AuthService) ListReviewers(ctx context.Context) ([]*models.Account, error) {
	list, err := s.repomanager.Accounts(s.db).ListByRole(ctx, models.RoleReviewer)
	if err != nil {
		return nil, storeErr(err)
	}
	return list, nil
}

// PurgeExpiredSessions drops session rows past their expiry.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.repomanager.Sessions(s.db).DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, storeErr(err)
	}
	return n, nil
}
