package providers

import (
	"context"
	"errors"
	"testing"
	"time"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "dial timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"network timeout", timeoutErr{}, true},
		{"wrapped network error", errors.Join(errors.New("request failed"), timeoutErr{}), true},
		{"rate limited", &apiError{status: 429}, true},
		{"server error", &apiError{status: 503}, true},
		{"bad request", &apiError{status: 400}, false},
		{"unauthorized", &apiError{status: 401}, false},
		{"plain error", errors.New("nope"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isRetryable(tc.err); got != tc.want {
				t.Errorf("isRetryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestWithRetryNonRetryableStopsImmediately(t *testing.T) {
	attempts := 0
	_, err := withRetry(context.Background(), func() (string, error) {
		attempts++
		return "", &apiError{status: 400, message: "bad request"}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 for non-retryable error", attempts)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	defer func(base, max time.Duration) {
		retryBaseDelay, retryMaxDelay = base, max
	}(retryBaseDelay, retryMaxDelay)
	retryBaseDelay, retryMaxDelay = time.Millisecond, 2*time.Millisecond

	attempts := 0
	_, err := withRetry(context.Background(), func() (string, error) {
		attempts++
		return "", timeoutErr{}
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != maxAttempts {
		t.Errorf("attempts = %d, want %d", attempts, maxAttempts)
	}
	var netErr timeoutErr
	if !errors.As(err, &netErr) {
		t.Errorf("surfaced error = %v, want the last attempt's error", err)
	}
}

func TestWithRetrySuccess(t *testing.T) {
	out, err := withRetry(context.Background(), func() (string, error) {
		return "ok", nil
	})
	if err != nil || out != "ok" {
		t.Errorf("withRetry() = (%q, %v)", out, err)
	}
}

func TestWithRetryContextCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := withRetry(ctx, func() (string, error) {
		return "", timeoutErr{}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	// The 4s backoff must be cut short by the context.
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("retry ignored context cancellation, took %v", elapsed)
	}
}

func TestDetectProvider(t *testing.T) {
	cases := map[string]string{
		"gemini-2.0-flash": GeminiName,
		"gpt-4o":           OpenAIName,
		"o1-preview":       OpenAIName,
		"mystery-model":    GeminiName,
	}
	for model, want := range cases {
		if got := DetectProvider(model); got != want {
			t.Errorf("DetectProvider(%q) = %q, want %q", model, got, want)
		}
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Options{Provider: GeminiName}); err == nil {
		t.Error("expected error without gemini key")
	}
	if _, err := New(Options{Provider: OpenAIName}); err == nil {
		t.Error("expected error without openai key")
	}
}

func TestMockQueue(t *testing.T) {
	m := &Mock{Responses: []string{"first", "second"}, ResponseText: "fallback"}
	for i, want := range []string{"first", "second", "fallback"} {
		got, err := m.Generate(context.Background(), "p", nil)
		if err != nil || got != want {
			t.Errorf("call %d = (%q, %v), want %q", i, got, err, want)
		}
	}
	if m.Calls() != 3 {
		t.Errorf("Calls() = %d", m.Calls())
	}
}
