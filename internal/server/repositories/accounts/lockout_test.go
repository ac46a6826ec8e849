package accounts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLockoutRule_Duration(t *testing.T) {
	rule := LockoutRule{Threshold: 5, Base: 15 * time.Minute, Max: 24 * time.Hour}

	tests := []struct {
		failed int
		want   time.Duration
	}{
		{0, 0},
		{4, 0},
		{5, 15 * time.Minute},
		{6, 30 * time.Minute},
		{7, time.Hour},
		{11, 16 * time.Hour},
		{12, 24 * time.Hour},
		{500, 24 * time.Hour},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rule.Duration(tt.failed), "failed=%d", tt.failed)
	}
}

func TestLockoutRule_DisabledThreshold(t *testing.T) {
	rule := LockoutRule{Threshold: 0, Base: time.Minute, Max: time.Hour}
	assert.Zero(t, rule.Duration(100))
}

func TestLockoutRule_Apply(t *testing.T) {
	rule := LockoutRule{Threshold: 5, Base: 15 * time.Minute, Max: 24 * time.Hour}
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	res := rule.Apply(3, now)
	assert.Equal(t, 4, res.FailedAttempts)
	assert.False(t, res.LockedNow())

	res = rule.Apply(4, now)
	assert.Equal(t, 5, res.FailedAttempts)
	if assert.True(t, res.LockedNow()) {
		assert.Equal(t, now.Add(15*time.Minute), *res.LockUntil)
	}
}
