// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	agenterrors "github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
)

func fastRetry() RetryConfig {
	return DefaultRetryConfig().WithInitialDelay(time.Millisecond).WithMaxDelay(2 * time.Millisecond)
}

func TestRetrySuccess(t *testing.T) {
	attempts := 0
	err := fastRetry().Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient error")
		}
		return nil
	})
	if err != nil {
		t.Errorf("expected success, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	retries := 0
	config := fastRetry().WithMaxAttempts(2).WithOnRetry(func(int, error) { retries++ })
	err := config.Do(context.Background(), func(context.Context) error {
		attempts++
		return errors.New("always fails")
	})
	if err == nil {
		t.Errorf("expected error after max attempts")
	}
	if attempts != 2 || retries != 1 {
		t.Errorf("expected 2 attempts and 1 retry, got %d and %d", attempts, retries)
	}
}

func TestRetryStopsOnFatal(t *testing.T) {
	attempts := 0
	_, err := Retry(context.Background(), fastRetry().WithMaxAttempts(5), func(context.Context) (string, error) {
		attempts++
		return "", agenterrors.Fatal("rate limit lockout", nil)
	})
	if !agenterrors.IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestRetryNonRecoverable(t *testing.T) {
	attempts := 0
	config := fastRetry().WithIsRecoverable(func(error) bool { return false })
	err := config.Do(context.Background(), func(context.Context) error {
		attempts++
		return errors.New("non-recoverable error")
	})
	if err == nil {
		t.Errorf("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestRetryContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := DefaultRetryConfig().WithInitialDelay(200 * time.Millisecond).WithMaxAttempts(5)

	attempts := 0
	err := config.Do(ctx, func(context.Context) error {
		attempts++
		cancel()
		return errors.New("transient error")
	})
	if agenterrors.CodeOf(err) != agenterrors.CodeContextLost {
		t.Fatalf("expected context lost, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestRetryValue(t *testing.T) {
	attempts := 0
	got, err := Retry(context.Background(), fastRetry(), func(context.Context) (int, error) {
		attempts++
		if attempts == 1 {
			return 0, errors.New("first fails")
		}
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Fatalf("expected 42, got %d (%v)", got, err)
	}
}

func TestWithTimeout(t *testing.T) {
	got, err := WithTimeout(context.Background(), time.Second, func(context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("expected ok, got %q (%v)", got, err)
	}

	_, err = WithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) (string, error) {
		<-ctx.Done()
		time.Sleep(5 * time.Millisecond)
		return "late", nil
	})
	if agenterrors.CodeOf(err) != agenterrors.CodeTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestFallbackOrder(t *testing.T) {
	var tried []string
	got, err := Fallback(context.Background(),
		Step[[]string]{Name: "api", Run: func(context.Context) ([]string, error) {
			tried = append(tried, "api")
			return nil, errors.New("boom")
		}},
		Step[[]string]{Name: "empty", Run: func(context.Context) ([]string, error) {
			tried = append(tried, "empty")
			return nil, nil
		}, Accept: func(v []string) bool { return len(v) > 0 }},
		Step[[]string]{Name: "crawler", Run: func(context.Context) ([]string, error) {
			tried = append(tried, "crawler")
			return []string{"hit"}, nil
		}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || len(tried) != 3 {
		t.Fatalf("unexpected result %v after %v", got, tried)
	}
}

func TestFallbackAllFail(t *testing.T) {
	_, err := Fallback(context.Background(),
		Step[int]{Name: "a", Run: func(context.Context) (int, error) { return 0, errors.New("a") }},
		Step[int]{Name: "b", Run: func(context.Context) (int, error) { return 0, errors.New("b") }},
	)
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestFallbackStopsOnFatal(t *testing.T) {
	calls := 0
	_, err := Fallback(context.Background(),
		Step[int]{Name: "a", Run: func(context.Context) (int, error) {
			calls++
			return 0, agenterrors.Fatal("lockout", nil)
		}},
		Step[int]{Name: "b", Run: func(context.Context) (int, error) {
			calls++
			return 1, nil
		}},
	)
	if !agenterrors.IsFatal(err) || calls != 1 {
		t.Fatalf("expected fatal after one call, got %v after %d", err, calls)
	}
}

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	now := time.Unix(0, 0)
	var transitions []CircuitBreakerState
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 2,
		Timeout:          time.Minute,
		Name:             "serper",
		Now:              func() time.Time { return now },
		OnStateChange: func(_ string, _, to CircuitBreakerState) {
			transitions = append(transitions, to)
		},
	})
	fail := func(context.Context) error { return errors.New("429") }
	ok := func(context.Context) error { return nil }

	_ = cb.Call(context.Background(), fail)
	if cb.State() != StateClosed {
		t.Fatalf("expected closed after one failure")
	}
	_ = cb.Call(context.Background(), fail)
	if cb.State() != StateOpen {
		t.Fatalf("expected open after threshold")
	}

	called := false
	err := cb.Call(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	if called || agenterrors.CodeOf(err) != agenterrors.CodeRateLimit {
		t.Fatalf("expected rejection while open, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if err := cb.Call(context.Background(), ok); err != nil {
		t.Fatalf("expected probe to pass: %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected closed after successful probe, got %s", cb.State())
	}
	want := []CircuitBreakerState{StateOpen, StateHalfOpen, StateClosed}
	if len(transitions) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("expected transitions %v, got %v", want, transitions)
		}
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		Timeout:          time.Second,
		Now:              func() time.Time { return now },
	})
	_ = cb.Call(context.Background(), func(context.Context) error { return errors.New("x") })
	now = now.Add(2 * time.Second)
	_ = cb.Call(context.Background(), func(context.Context) error { return errors.New("x") })
	if cb.State() != StateOpen {
		t.Fatalf("expected reopened circuit, got %s", cb.State())
	}
	cb.Reset()
	if cb.State() != StateClosed {
		t.Fatalf("expected closed after reset")
	}
}
