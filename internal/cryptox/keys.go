package cryptox

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Purposes used as salts for derived fallback keys. Distinct purposes yield
// distinct keys from the same secret.
const (
	PurposeEncryption = "docvault/encryption/v1"
	PurposeSigning    = "docvault/signing/v1"
)

var (
	ErrMissingKey = errors.New("key not provisioned")
	ErrKeyReuse   = errors.New("encryption and signing keys must differ")
)

// KeyConfig describes how process-wide keys are provisioned.
//
// EncryptionKey and SigningKey are 32 bytes encoded as hex or standard
// base64. When one is empty and AllowDerived is set, it is derived from
// FallbackSecret with Argon2id; this is acceptable only outside production.
type KeyConfig struct {
	EncryptionKey  string
	SigningKey     string
	FallbackSecret string
	AllowDerived   bool
}

// Keys holds the loaded key material.
type Keys struct {
	Encryption []byte
	Signing    []byte
	// Derived lists the purposes whose key came from the fallback secret.
	Derived []string
}

// LoadKeys decodes or derives both keys and checks that they differ.
func LoadKeys(cfg KeyConfig) (*Keys, error) {
	keys := &Keys{}

	enc, derived, err := loadKey(cfg.EncryptionKey, cfg, PurposeEncryption)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	if derived {
		keys.Derived = append(keys.Derived, PurposeEncryption)
	}

	sig, derived, err := loadKey(cfg.SigningKey, cfg, PurposeSigning)
	if err != nil {
		return nil, fmt.Errorf("signing key: %w", err)
	}
	if derived {
		keys.Derived = append(keys.Derived, PurposeSigning)
	}

	if bytes.Equal(enc, sig) {
		return nil, ErrKeyReuse
	}

	keys.Encryption = enc
	keys.Signing = sig
	return keys, nil
}

func loadKey(encoded string, cfg KeyConfig, purpose string) ([]byte, bool, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded != "" {
		k, err := DecodeKey(encoded)
		return k, false, err
	}
	if !cfg.AllowDerived || cfg.FallbackSecret == "" {
		return nil, false, ErrMissingKey
	}
	return DeriveKey([]byte(cfg.FallbackSecret), purpose), true, nil
}

// DecodeKey accepts 64 hex characters or base64 of exactly 32 bytes.
func DecodeKey(encoded string) ([]byte, error) {
	if len(encoded) == 2*KeySize {
		if k, err := hex.DecodeString(encoded); err == nil {
			return k, nil
		}
	}
	k, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: not hex or base64", ErrInvalidKey)
	}
	if len(k) != KeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, KeySize, len(k))
	}
	return k, nil
}

// DeriveKey derives a 32-byte key from a low-entropy secret, salted by purpose.
func DeriveKey(secret []byte, purpose string) []byte {
	return DeriveMasterKey(secret, []byte(purpose))
}

func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}
