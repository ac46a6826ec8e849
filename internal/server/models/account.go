// Package models defines server-side data models persisted in the database.
package models

import "time"

// Role is the account's fixed role. It decides which actions the access
// policy permits.
type Role string

const (
	RoleOwner         Role = "owner"
	RoleReviewer      Role = "reviewer"
	RoleAdministrator Role = "administrator"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleReviewer, RoleAdministrator:
		return true
	}
	return false
}

// MFASecret is the TOTP enrollment record stored on the account.
type MFASecret struct {
	Raw    []byte
	Base32 string
	URI    string
}

type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role

	MFASecret  *MFASecret
	MFAEnabled bool
	// MFALastStep is the last TOTP time step accepted for this account.
	MFALastStep *int64

	FailedAttempts int
	LockUntil      *time.Time
	CreatedAt      time.Time
}

// LockedAt reports whether the account is locked at instant now. An expired
// lock counts as unlocked.
func (a *Account) LockedAt(now time.Time) bool {
	return a.LockUntil != nil && now.Before(*a.LockUntil)
}

// MFAPending reports whether enrollment was started but not confirmed.
func (a *Account) MFAPending() bool {
	return a.MFASecret != nil && !a.MFAEnabled
}

// Principal is the authenticated requester as seen by the access policy.
type Principal struct {
	AccountID string
	Email     string
	Role      Role
}

func (a *Account) Principal() Principal {
	return Principal{AccountID: a.ID, Email: a.Email, Role: a.Role}
}
