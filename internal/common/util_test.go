package common

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeRandHexString(t *testing.T) {
	s, err := MakeRandHexString(32)
	require.NoError(t, err)
	assert.Len(t, s, 64)

	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	assert.Len(t, b, 32)

	other, err := MakeRandHexString(32)
	require.NoError(t, err)
	assert.NotEqual(t, s, other)

	empty, err := MakeRandHexString(0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGenerateRandByteArray(t *testing.T) {
	a := GenerateRandByteArray(16)
	b := GenerateRandByteArray(16)
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}

func TestWipeByteArray(t *testing.T) {
	password := []byte("correct horse")
	WipeByteArray(password)
	assert.Equal(t, make([]byte, len(password)), password)

	assert.NotPanics(t, func() { WipeByteArray(nil) })
}

func TestPersistence(t *testing.T) {
	cause := errors.New("connection refused")
	err := Persistence(cause)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)
	assert.NoError(t, Persistence(nil))
}

func TestSentinelCategories(t *testing.T) {
	cases := map[error]error{
		ErrInvalidCredentials:  ErrAuthentication,
		ErrAccountLocked:       ErrAuthentication,
		ErrInvalidMFACode:      ErrAuthentication,
		ErrSessionRevoked:      ErrAuthentication,
		ErrMFAAlreadyEnabled:   ErrValidation,
		ErrContentTooLarge:     ErrValidation,
		ErrUnsupportedMimeType: ErrValidation,
		ErrMimeTypeMismatch:    ErrValidation,
		ErrNotReviewer:         ErrValidation,
	}
	for err, category := range cases {
		assert.ErrorIs(t, err, category, err.Error())
		assert.NotErrorIs(t, err, ErrPersistence, err.Error())
	}
}
