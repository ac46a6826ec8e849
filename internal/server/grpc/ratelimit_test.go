package grpc

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAddressLimiter(t *testing.T) {
	l := newAddressLimiter(RateLimit{Requests: 5, Window: 15 * time.Minute})
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow("198.51.100.4", now), "request %d", i)
	}
	assert.False(t, l.Allow("198.51.100.4", now))
	assert.True(t, l.Allow("203.0.113.9", now), "other addresses have their own budget")

	// One token refills every window/requests.
	assert.False(t, l.Allow("198.51.100.4", now.Add(2*time.Minute)))
	assert.True(t, l.Allow("198.51.100.4", now.Add(3*time.Minute)))
	assert.False(t, l.Allow("198.51.100.4", now.Add(3*time.Minute)))
}

func TestAddressLimiter_Disabled(t *testing.T) {
	assert.Nil(t, newAddressLimiter(RateLimit{}))
	assert.Nil(t, newAddressLimiter(RateLimit{Requests: 5}))

	var l *addressLimiter
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("198.51.100.4", time.Now()))
	}
}

func TestAddressLimiter_PrunesIdleAddresses(t *testing.T) {
	l := newAddressLimiter(RateLimit{Requests: 1, Window: time.Minute})
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < pruneEvery-1; i++ {
		l.Allow(fmt.Sprintf("10.0.%d.%d", i/256, i%256), now)
	}
	assert.Equal(t, pruneEvery-1, l.size())

	l.Allow("198.51.100.4", now.Add(2*time.Minute))
	assert.Equal(t, 1, l.size())
}
