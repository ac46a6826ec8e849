package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	accountID := "acc-123"

	tok, err := GenerateToken(accountID, ScopeSession, secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	if tok.ID == "" || tok.Value == "" {
		t.Fatalf("empty token: %+v", tok)
	}

	claims, err := ParseToken(tok.Value, secret, ScopeSession)
	if err != nil {
		t.Fatalf("ParseToken error: %v", err)
	}
	if claims.AccountID != accountID {
		t.Fatalf("account mismatch: got %q want %q", claims.AccountID, accountID)
	}
	if claims.ID != tok.ID {
		t.Fatalf("jti mismatch: got %q want %q", claims.ID, tok.ID)
	}
}

func TestGenerateToken_UniqueIDs(t *testing.T) {
	t.Parallel()

	a, _ := GenerateToken("u", ScopeSession, []byte("k"), time.Hour)
	b, _ := GenerateToken("u", ScopeSession, []byte("k"), time.Hour)
	if a.ID == b.ID {
		t.Fatal("expected distinct jti values")
	}
}

func TestParseToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")

	tok, err := GenerateToken("u1", ScopeSession, secret, -1*time.Second)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = ParseToken(tok.Value, secret, ScopeSession)
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected common.ErrTokenExpired, got %v", err)
	}
	if !errors.Is(err, common.ErrAuthentication) {
		t.Fatalf("expected authentication category, got %v", err)
	}
}

func TestParseToken_WrongScope(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := GenerateToken("u1", ScopeMFA, secret, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	if _, err := ParseToken(tok.Value, secret, ScopeSession); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("mfa token accepted as session: %v", err)
	}
	if _, err := ParseToken(tok.Value, secret, ScopeMFA); err != nil {
		t.Fatalf("mfa token rejected for mfa scope: %v", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("u2", ScopeSession, []byte("right-secret"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = ParseToken(tok.Value, []byte("wrong-secret"), ScopeSession)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		AccountID:        "u3",
		Scope:            ScopeSession,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := ParseToken(s, []byte("k"), ScopeSession); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected HS512 token to be rejected, got %v", err)
	}
}

func TestParseToken_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := ParseToken("not.a.jwt", []byte("k"), ScopeSession)
	if err == nil {
		t.Fatalf("expected error for malformed token, got nil")
	}
}
