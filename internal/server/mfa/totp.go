// Package mfa generates and verifies RFC 6238 time-based one-time codes for
// second-factor enrollment and login.
package mfa

import (
	"crypto/subtle"
	"encoding/base32"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	SecretSize    = 20
	DefaultPeriod = 30
	DefaultSkew   = 1
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// TOTP is a six-digit SHA-1 TOTP generator/verifier.
type TOTP struct {
	issuer string
	period uint
	skew   uint
	now    func() time.Time
}

type Option func(*TOTP)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *TOTP) { t.now = now }
}

// WithPeriod overrides the 30-second step.
func WithPeriod(seconds uint) Option {
	return func(t *TOTP) {
		if seconds > 0 {
			t.period = seconds
		}
	}
}

func New(issuer string, skew uint, opts ...Option) *TOTP {
	t := &TOTP{issuer: issuer, period: DefaultPeriod, skew: skew, now: time.Now}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Generate creates a fresh secret and its otpauth:// enrollment URI.
func (t *TOTP) Generate(accountName string) (*models.MFASecret, error) {
	raw := common.GenerateRandByteArray(SecretSize)

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      t.issuer,
		AccountName: accountName,
		Period:      t.period,
		Secret:      raw,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}

	return &models.MFASecret{Raw: raw, Base32: key.Secret(), URI: key.URL()}, nil
}

// Step returns the time step containing at.
func (t *TOTP) Step(at time.Time) int64 {
	return at.Unix() / int64(t.period)
}

// CodeAt returns the code valid for the step containing at.
func (t *TOTP) CodeAt(secret *models.MFASecret, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(secretString(secret), at, t.validateOpts())
}

// Verify checks code within ±skew steps of now. Steps at or before lastStep
// are never accepted, so a code that already succeeded cannot be replayed.
// On success it returns the matched step.
func (t *TOTP) Verify(secret *models.MFASecret, code string, lastStep *int64) (int64, bool) {
	if secret == nil || len(code) != int(otp.DigitsSix) {
		return 0, false
	}

	current := t.Step(t.now())
	skew := int64(t.skew)

	for offset := -skew; offset <= skew; offset++ {
		step := current + offset
		if step < 0 || (lastStep != nil && step <= *lastStep) {
			continue
		}

		expected, err := totp.GenerateCodeCustom(secretString(secret), time.Unix(step*int64(t.period), 0), t.validateOpts())
		if err != nil {
			return 0, false
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1 {
			return step, true
		}
	}

	return 0, false
}

func (t *TOTP) validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    t.period,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

func secretString(s *models.MFASecret) string {
	if s.Base32 != "" {
		return s.Base32
	}
	return b32.EncodeToString(s.Raw)
}
