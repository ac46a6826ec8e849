package models

import "time"

// Session backs a session JWT; ID is the token's jti.
type Session struct {
	ID        string
	AccountID string
	ExpiresAt time.Time
	CreatedAt time.Time
}
