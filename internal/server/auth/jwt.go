// Package auth issues and parses the HS256 JWTs handed to clients.
//
// Two scopes exist: "session" tokens authorize API calls and carry a jti
// backed by a server-side session row, "mfa" tokens only prove that the
// password step of a login succeeded and may be exchanged for a session
// once the one-time code is verified.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ScopeSession = "session"
	ScopeMFA     = "mfa"
)

// Claims carries the standard claims plus the account and scope.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"aid"`
	Scope     string `json:"scope"`
}

// Token is a freshly signed JWT with its identity.
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

func GenerateToken(accountID, scope string, secretKey []byte, validityDuration time.Duration) (*Token, error) {
	now := time.Now()
	jti := uuid.NewString()
	expiresAt := now.Add(validityDuration)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		AccountID: accountID,
		Scope:     scope,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return nil, err
	}

	return &Token{Value: tokenString, ID: jti, ExpiresAt: expiresAt}, nil
}

// ParseToken validates signature, algorithm, expiry and scope. Expired
// tokens yield common.ErrTokenExpired, anything else common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte, scope string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.AccountID == "" || claims.Scope != scope {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
