// Package cryptox holds the vault's cryptographic primitives: the AEAD
// engine that seals document content, the signer that tracks plaintext
// integrity independently of the encryption key, key loading and password
// hashing.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/common"
)

// Blob layout: nonce(16) ∥ tag(16) ∥ ciphertext(n).
const (
	KeySize   = 32
	NonceSize = 16
	TagSize   = 16

	headerSize = NonceSize + TagSize
)

var (
	// ErrAuthFailed is returned when authenticated decryption rejects a blob.
	ErrAuthFailed = fmt.Errorf("%w: authentication failed - data may be corrupted or tampered", common.ErrIntegrity)
	// ErrTruncatedBlob is returned for blobs too short to hold nonce and tag.
	ErrTruncatedBlob = fmt.Errorf("%w: blob shorter than header", ErrAuthFailed)
	// ErrInvalidKey is returned for keys of the wrong size.
	ErrInvalidKey = errors.New("invalid key")
)

// Engine encrypts and decrypts document content with AES-256-GCM using a
// 128-bit random nonce per call. It is immutable and safe for concurrent use.
type Engine struct {
	aead cipher.AEAD
}

// NewEngine creates an Engine for a 32-byte key.
func NewEngine(key []byte) (*Engine, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: AES-256 requires a %d-byte key, got %d bytes", ErrInvalidKey, KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Engine{aead: aead}, nil
}

// Encrypt seals plaintext and returns nonce ∥ tag ∥ ciphertext.
func (e *Engine) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal appends the tag after the ciphertext.
	sealed := e.aead.Seal(nil, nonce, plaintext, nil)
	ciphertext, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	blob := make([]byte, 0, headerSize+len(ciphertext))
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, ciphertext...)
	return blob, nil
}

// Decrypt opens a blob produced by Encrypt. Any modification of nonce, tag or
// ciphertext yields an error matching ErrAuthFailed and common.ErrIntegrity.
func (e *Engine) Decrypt(blob []byte) ([]byte, error) {
	if len(blob) < headerSize {
		return nil, ErrTruncatedBlob
	}

	nonce := blob[:NonceSize]
	tag := blob[NonceSize:headerSize]
	ciphertext := blob[headerSize:]

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}
