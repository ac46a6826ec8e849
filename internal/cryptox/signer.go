package cryptox

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/common"
)

// MinSigningKeySize is the shortest accepted HMAC key.
const MinSigningKeySize = 32

// ErrSignatureMismatch reports plaintext that no longer matches its recorded
// hash or signature. It is distinct from ErrAuthFailed.
var ErrSignatureMismatch = fmt.Errorf("%w: signature mismatch", common.ErrIntegrity)

// Signer computes a content hash and a keyed MAC over it. The signing key
// must be separate from the encryption key.
type Signer struct {
	key []byte
}

func NewSigner(key []byte) (*Signer, error) {
	if len(key) < MinSigningKeySize {
		return nil, fmt.Errorf("%w: signing key must be at least %d bytes, got %d", ErrInvalidKey, MinSigningKeySize, len(key))
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Signer{key: k}, nil
}

// Sign returns hex(SHA-256(plaintext)) and hex(HMAC-SHA256(key, hash)), where
// the MAC input is the hash's hex string.
func (s *Signer) Sign(plaintext []byte) (hash, signature string) {
	sum := sha256.Sum256(plaintext)
	hash = hex.EncodeToString(sum[:])
	return hash, s.mac(hash)
}

// Verify recomputes hash and signature and requires both to match exactly.
func (s *Signer) Verify(plaintext []byte, hash, signature string) bool {
	gotHash, gotSig := s.Sign(plaintext)
	hashOK := subtle.ConstantTimeCompare([]byte(gotHash), []byte(hash)) == 1
	sigOK := hmac.Equal([]byte(gotSig), []byte(signature))
	return hashOK && sigOK
}

func (s *Signer) mac(hash string) string {
	m := hmac.New(sha256.New, s.key)
	m.Write([]byte(hash))
	return hex.EncodeToString(m.Sum(nil))
}
