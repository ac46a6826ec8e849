package accounts

import "time"

// LockoutRule is the escalating lockout schedule: after Threshold
// consecutive failures the account is locked for Base, doubling with every
// further failure up to Max.
type LockoutRule struct {
	Threshold int
	Base      time.Duration
	Max       time.Duration
}

// Duration returns the lock length after failed consecutive failures, or
// zero below the threshold.
func (r LockoutRule) Duration(failed int) time.Duration {
	if r.Threshold <= 0 || failed < r.Threshold {
		return 0
	}
	d := r.Base
	for i := r.Threshold; i < failed; i++ {
		if d >= r.Max {
			break
		}
		d *= 2
	}
	if d > r.Max {
		return r.Max
	}
	return d
}

// Apply computes the failure result of moving from previous to
// previous+1 failures at now.
func (r LockoutRule) Apply(previous int, now time.Time) *FailureResult {
	failed := previous + 1
	res := &FailureResult{FailedAttempts: failed}
	if d := r.Duration(failed); d > 0 {
		until := now.Add(d)
		res.LockUntil = &until
	}
	return res
}
