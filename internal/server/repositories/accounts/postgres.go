package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const accountColumns = `id, email, password_hash, role, mfa_secret_raw, mfa_secret_base32, mfa_secret_uri,
		 mfa_enabled, mfa_last_step, failed_attempts, lock_until, created_at`

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (email, password_hash, role)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, account.Email, account.PasswordHash, string(account.Role)).
		Scan(&account.ID, &account.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + `
		 FROM accounts
		 WHERE email = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + `
		 FROM accounts
		 WHERE id = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) ListByRole(ctx context.Context, role models.Role) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + `
		 FROM accounts
		 WHERE role = $1
		 ORDER BY email`

	rows, err := r.db.QueryContext(ctx, query, string(role))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// RecordFailure runs as a single statement: the increment and the lock
// decision see the same row version, so concurrent failures cannot skip
// the threshold.
func (r *PostgresRepository) RecordFailure(ctx context.Context, id string, now time.Time, rule LockoutRule) (*FailureResult, error) {
	query :=
		`UPDATE accounts SET
		   failed_attempts = failed_attempts + 1,
		   lock_until = CASE WHEN failed_attempts + 1 >= $2
		     THEN $3::timestamptz + make_interval(secs => LEAST(
		            $4::double precision * power(2, LEAST(failed_attempts + 1 - $2, 30)),
		            $5::double precision))
		     ELSE NULL END
		 WHERE id = $1 AND (lock_until IS NULL OR lock_until <= $3)
		 RETURNING failed_attempts, lock_until`

	res := &FailureResult{}
	var lockUntil sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id, rule.Threshold, now, rule.Base.Seconds(), rule.Max.Seconds()).
		Scan(&res.FailedAttempts, &lockUntil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrAccountLocked
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if lockUntil.Valid {
		res.LockUntil = &lockUntil.Time
	}
	return res, nil
}

func (r *PostgresRepository) RecordSuccess(ctx context.Context, id string) error {
	query :=
		`UPDATE accounts SET failed_attempts = 0, lock_until = NULL
		 WHERE id = $1`
	return execOne(ctx, r.db, query, common.ErrorNotFound, id)
}

func (r *PostgresRepository) SetMFASecret(ctx context.Context, id string, secret *models.MFASecret) error {
	query :=
		`UPDATE accounts SET mfa_secret_raw = $2, mfa_secret_base32 = $3, mfa_secret_uri = $4, mfa_last_step = NULL
		 WHERE id = $1 AND mfa_enabled = FALSE`
	return execOne(ctx, r.db, query, common.ErrMFAAlreadyEnabled, id, secret.Raw, secret.Base32, secret.URI)
}

func (r *PostgresRepository) EnableMFA(ctx context.Context, id string, step int64) error {
	query :=
		`UPDATE accounts SET mfa_enabled = TRUE, mfa_last_step = $2
		 WHERE id = $1 AND mfa_enabled = FALSE AND mfa_secret_base32 IS NOT NULL`
	return execOne(ctx, r.db, query, common.ErrMFANotInitiated, id, step)
}

func (r *PostgresRepository) ConsumeMFAStep(ctx context.Context, id string, step int64) (bool, error) {
	query :=
		`UPDATE accounts SET mfa_last_step = $2
		 WHERE id = $1 AND (mfa_last_step IS NULL OR mfa_last_step < $2)`

	res, err := r.db.ExecContext(ctx, query, id, step)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func execOne(ctx context.Context, db dbx.DBTX, query string, noRows error, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return noRows
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*models.Account, error) {
	var (
		a         models.Account
		role      string
		raw       []byte
		b32, uri  sql.NullString
		lastStep  sql.NullInt64
		lockUntil sql.NullTime
	)

	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &role, &raw, &b32, &uri,
		&a.MFAEnabled, &lastStep, &a.FailedAttempts, &lockUntil, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	a.Role = models.Role(role)
	if b32.Valid {
		a.MFASecret = &models.MFASecret{Raw: raw, Base32: b32.String, URI: uri.String}
	}
	if lastStep.Valid {
		a.MFALastStep = &lastStep.Int64
	}
	if lockUntil.Valid {
		a.LockUntil = &lockUntil.Time
	}
	return &a, nil
}
