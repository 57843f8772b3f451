package resilience

import (
	"context"
	"time"
)

// PollStatus is the outcome of one poll attempt.
type PollStatus int

const (
	// PollPending means the job is still processing; poll again.
	PollPending PollStatus = iota
	// PollDone means the job reached a terminal success state.
	PollDone
	// PollFailed means the job reached a terminal failure state.
	PollFailed
)

// PollConfig bounds a submit-then-poll loop: attempt count, per-attempt
// delay growth, and an overall deadline. The state lives in the Poller, not
// in a sleep loop, so the policy is independent of any concurrency primitive.
type PollConfig struct {
	// Interval is the delay before the first poll and the base for growth.
	Interval time.Duration
	// MaxInterval caps the delay between polls.
	MaxInterval time.Duration
	// Growth multiplies the interval after each pending attempt. 1.0 keeps
	// the interval fixed.
	Growth float64
	// MaxWait bounds the total time spent polling.
	MaxWait time.Duration
}

// DefaultPollConfig returns the submit-then-poll policy shared by the
// asynchronous ASR vendors.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:    3 * time.Second,
		MaxInterval: 15 * time.Second,
		Growth:      1.5,
		MaxWait:     10 * time.Minute,
	}
}

// Poller tracks the progress of one bounded poll loop.
type Poller struct {
	cfg      PollConfig
	attempts int
	next     time.Duration
	deadline time.Time
}

// NewPoller creates a poller whose deadline starts now.
func NewPoller(cfg PollConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 15 * time.Second
	}
	if cfg.Growth < 1.0 {
		cfg.Growth = 1.0
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 10 * time.Minute
	}
	return &Poller{
		cfg:      cfg,
		next:     cfg.Interval,
		deadline: time.Now().Add(cfg.MaxWait),
	}
}

// Attempts returns the number of poll attempts made so far.
func (p *Poller) Attempts() int { return p.attempts }

// NextDelay returns the delay that will precede the next attempt.
func (p *Poller) NextDelay() time.Duration { return p.next }

// Expired reports whether the overall deadline has passed.
func (p *Poller) Expired() bool { return time.Now().After(p.deadline) }

// advance records one pending attempt and grows the delay.
func (p *Poller) advance() {
	p.attempts++
	grown := time.Duration(float64(p.next) * p.cfg.Growth)
	if grown > p.cfg.MaxInterval {
		grown = p.cfg.MaxInterval
	}
	p.next = grown
}

// Wait blocks for the current delay or until the context is done. Returns
// false when the deadline or context expired and polling must stop.
func (p *Poller) Wait(ctx context.Context) bool {
	if p.Expired() {
		return false
	}
	delay := p.next
	if remaining := time.Until(p.deadline); remaining < delay {
		delay = remaining
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}
	if p.Expired() {
		return false
	}
	p.advance()
	return true
}

// Poll drives a bounded poll loop: fn is invoked after each wait until it
// reports a terminal status, the deadline passes, or the context is
// canceled. A deadline expiry returns errTimeout; a context expiry returns
// ctx.Err(); PollFailed returns fn's error.
func Poll(ctx context.Context, cfg PollConfig, errTimeout error, fn func() (PollStatus, error)) error {
	p := NewPoller(cfg)
	for {
		if !p.Wait(ctx) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errTimeout
		}

		status, err := fn()
		switch status {
		case PollDone:
			return nil
		case PollFailed:
			return err
		case PollPending:
			// keep polling
		}
	}
}
