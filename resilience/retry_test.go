package resilience

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/taoxee/scribeflow/errors"
)

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	cfg := DefaultRetryConfig()
	callCount := 0

	result, err := Retry(context.Background(), cfg, func() (string, error) {
		callCount++
		return "ok", nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result != "ok" {
		t.Errorf("expected 'ok', got %s", result)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestRetry_RetriesTransientErrors(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		BackoffFactor:  2.0,
	}
	callCount := 0

	result, err := Retry(context.Background(), cfg, func() (string, error) {
		callCount++
		if callCount < 3 {
			return "", errors.NetworkTransient("deepgram", stderrors.New("refused"))
		}
		return "ok", nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result != "ok" {
		t.Errorf("expected 'ok', got %s", result)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestRetry_DoesNotRetryAuthErrors(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: time.Millisecond,
	}
	callCount := 0

	_, err := Retry(context.Background(), cfg, func() (string, error) {
		callCount++
		return "", errors.AuthFailed("openai", "bad key")
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if callCount != 1 {
		t.Errorf("auth errors must not be retried, got %d calls", callCount)
	}
}

func TestRetry_RetriesQuotaErrors(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
	}
	callCount := 0

	_, err := Retry(context.Background(), cfg, func() (string, error) {
		callCount++
		return "", errors.QuotaExceeded("openai")
	})

	if errors.CodeOf(err) != errors.ErrCodeQuotaExceeded {
		t.Errorf("expected last quota error surfaced, got %v", err)
	}
	if callCount != 2 {
		t.Errorf("expected 2 calls, got %d", callCount)
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	callCount := 0
	_, err := Retry(ctx, DefaultRetryConfig(), func() (string, error) {
		callCount++
		return "", errors.QuotaExceeded("openai")
	})

	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if callCount != 0 {
		t.Errorf("expected 0 calls after cancel, got %d", callCount)
	}
}

func TestRetry_OnRetryCallback(t *testing.T) {
	var attempts []int
	cfg := RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			attempts = append(attempts, attempt)
		},
	}

	_ = RetryFunc(context.Background(), cfg, func() error {
		return errors.NetworkTransient("groq", stderrors.New("5xx"))
	})

	if len(attempts) != 2 {
		t.Errorf("expected 2 retry callbacks, got %d", len(attempts))
	}
}

func TestPoller_ExpiryDuringWaitCountsNoAttempt(t *testing.T) {
	p := NewPoller(PollConfig{
		Interval:    50 * time.Millisecond,
		MaxInterval: 50 * time.Millisecond,
		Growth:      1.0,
		MaxWait:     5 * time.Millisecond,
	})

	if p.Wait(context.Background()) {
		t.Fatal("expected Wait to report deadline expiry")
	}
	if p.Attempts() != 0 {
		t.Errorf("Attempts = %d, want 0 for a wait cut short by the deadline", p.Attempts())
	}
}

func TestPoller_BoundedAttempts(t *testing.T) {
	cfg := PollConfig{
		Interval:    time.Millisecond,
		MaxInterval: 4 * time.Millisecond,
		Growth:      2.0,
		MaxWait:     30 * time.Millisecond,
	}
	p := NewPoller(cfg)

	count := 0
	for p.Wait(context.Background()) {
		count++
		if count > 100 {
			t.Fatal("poller did not stop at deadline")
		}
	}
	if count == 0 {
		t.Error("expected at least one attempt before deadline")
	}
	if p.Attempts() != count {
		t.Errorf("attempt count mismatch: %d vs %d", p.Attempts(), count)
	}
}

func TestPoller_DelayGrowthIsCapped(t *testing.T) {
	p := NewPoller(PollConfig{
		Interval:    time.Millisecond,
		MaxInterval: 3 * time.Millisecond,
		Growth:      10.0,
		MaxWait:     time.Second,
	})

	_ = p.Wait(context.Background())
	_ = p.Wait(context.Background())
	if p.NextDelay() > 3*time.Millisecond {
		t.Errorf("expected delay capped at 3ms, got %v", p.NextDelay())
	}
}

func TestPoll_TerminalStates(t *testing.T) {
	cfg := PollConfig{Interval: time.Millisecond, MaxWait: time.Second}

	calls := 0
	err := Poll(context.Background(), cfg, errors.Timeout("tencent", "poll"), func() (PollStatus, error) {
		calls++
		if calls < 3 {
			return PollPending, nil
		}
		return PollDone, nil
	})
	if err != nil {
		t.Errorf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 polls, got %d", calls)
	}

	failure := errors.VendorProtocol("tencent", []byte("boom"))
	err = Poll(context.Background(), cfg, errors.Timeout("tencent", "poll"), func() (PollStatus, error) {
		return PollFailed, failure
	})
	if errors.CodeOf(err) != errors.ErrCodeVendorProtocol {
		t.Errorf("expected failure error surfaced, got %v", err)
	}
}

func TestPoll_DeadlineYieldsTimeout(t *testing.T) {
	cfg := PollConfig{Interval: time.Millisecond, MaxWait: 5 * time.Millisecond}

	timeoutErr := errors.Timeout("xfyun", "poll")
	err := Poll(context.Background(), cfg, timeoutErr, func() (PollStatus, error) {
		return PollPending, nil
	})
	if errors.CodeOf(err) != errors.ErrCodeTimeout {
		t.Errorf("expected TIMEOUT after deadline, got %v", err)
	}
}
