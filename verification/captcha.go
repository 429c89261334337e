package verification

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DefaultMaxCaptchaAttempts is the challenge budget before lockout.
const DefaultMaxCaptchaAttempts = 3

// ErrCaptchaLocked means the attempt budget is exhausted; further challenges
// are refused until a manual reset.
var ErrCaptchaLocked = errors.New("captcha attempts exhausted")

// TokenVerifier checks one challenge token against the verification backend.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (bool, error)
}

// CaptchaCheck is the CAPTCHA widget's state: a pass/fail surface over the
// token verifier with an attempt counter persisted in the given store. The
// counter is keyed by device, not by wallet identity, so it survives
// restarts when the store is durable.
type CaptchaCheck struct {
	verifier    TokenVerifier
	counters    CounterStore
	counterKey  string
	maxAttempts int

	mu       sync.Mutex
	verified bool
}

// NewCaptchaCheck wires the widget. maxAttempts <= 0 falls back to the
// default budget of 3.
func NewCaptchaCheck(verifier TokenVerifier, counters CounterStore, counterKey string, maxAttempts int) *CaptchaCheck {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxCaptchaAttempts
	}
	return &CaptchaCheck{
		verifier:    verifier,
		counters:    counters,
		counterKey:  counterKey,
		maxAttempts: maxAttempts,
	}
}

// Submit verifies one challenge token. A successful challenge reports true
// without touching the counter. A failed challenge increments it; once the
// budget is reached the widget reports lockout and refuses further
// attempts. Transport failures are returned as errors and do not count.
func (c *CaptchaCheck) Submit(ctx context.Context, token string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	attempts, err := c.counters.Counter(c.counterKey)
	if err != nil {
		return false, fmt.Errorf("failed to read captcha attempts: %w", err)
	}
	if attempts >= c.maxAttempts {
		return false, ErrCaptchaLocked
	}

	ok, err := c.verifier.Verify(ctx, token)
	if err != nil {
		return false, err
	}
	if ok {
		c.verified = true
		return true, nil
	}

	return false, c.recordFailure()
}

// Expire counts an expired or errored challenge against the budget without
// a backend round trip.
func (c *CaptchaCheck) Expire() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	attempts, err := c.counters.Counter(c.counterKey)
	if err != nil {
		return fmt.Errorf("failed to read captcha attempts: %w", err)
	}
	if attempts >= c.maxAttempts {
		return ErrCaptchaLocked
	}
	return c.recordFailure()
}

func (c *CaptchaCheck) recordFailure() error {
	attempts, err := c.counters.Increment(c.counterKey)
	if err != nil {
		return fmt.Errorf("failed to record captcha attempt: %w", err)
	}
	if attempts >= c.maxAttempts {
		return ErrCaptchaLocked
	}
	return nil
}

// Verified reports the boolean the gate consumes.
func (c *CaptchaCheck) Verified() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.verified
}

// Attempts returns the current counter value.
func (c *CaptchaCheck) Attempts() (int, error) {
	return c.counters.Counter(c.counterKey)
}

// Locked reports whether the attempt budget is exhausted.
func (c *CaptchaCheck) Locked() (bool, error) {
	attempts, err := c.counters.Counter(c.counterKey)
	if err != nil {
		return false, err
	}
	return attempts >= c.maxAttempts, nil
}

// Reset clears the attempt counter and re-enables challenges. This is the
// manual reset affordance; it does not grant verification.
func (c *CaptchaCheck) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verified = false
	return c.counters.SetCounter(c.counterKey, 0)
}
