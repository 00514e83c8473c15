// internal/errors/service_test.go
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func fastRetry(max int) RetryConfig {
	return RetryConfig{
		MaxRetries:    max,
		BaseDelay:     time.Millisecond,
		BackoffFactor: 2.0,
		MaxDelay:      5 * time.Millisecond,
	}
}

func TestService_ExecuteWithRetry_Success(t *testing.T) {
	service := NewServiceWithRetry(fastRetry(3))

	attempts := 0
	err := service.ExecuteWithRetry(context.Background(), func() error {
		attempts++
		return nil
	}, "fetch")

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestService_ExecuteWithRetry_TransientRetried(t *testing.T) {
	service := NewServiceWithRetry(fastRetry(3))

	attempts := 0
	err := service.ExecuteWithRetry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return Fetch(ReasonTimeout, "https://a.example", "//span", context.DeadlineExceeded)
		}
		return nil
	}, "fetch")

	if err != nil {
		t.Errorf("expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestService_ExecuteWithRetry_PermanentNotRetried(t *testing.T) {
	service := NewServiceWithRetry(fastRetry(3))

	attempts := 0
	err := service.ExecuteWithRetry(context.Background(), func() error {
		attempts++
		return Fetch(ReasonLocatorNotFound, "https://a.example", "//span", fmt.Errorf("no node"))
	}, "fetch")

	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("locator errors must not be retried, got %d attempts", attempts)
	}
	if !IsKind(err, KindFetch) {
		t.Errorf("expected fetch kind to survive wrapping, got %v", err)
	}
}

func TestService_ExecuteWithRetry_DefaultDoesNotRetry(t *testing.T) {
	service := NewService()

	attempts := 0
	original := Fetch(ReasonTimeout, "https://a.example", "//span", context.DeadlineExceeded)
	err := service.ExecuteWithRetry(context.Background(), func() error {
		attempts++
		return original
	}, "fetch")

	if attempts != 1 {
		t.Errorf("expected a single attempt, got %d", attempts)
	}
	if err != original {
		t.Errorf("expected the original error back unchanged, got %v", err)
	}
}

func TestService_ExecuteWithRetry_ReportsAttemptsMade(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		want     string
	}{
		{name: "permanent after one retry", failures: 1, want: "failed after 2 attempts"},
		{name: "retries exhausted", failures: 99, want: "failed after 4 attempts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewServiceWithRetry(fastRetry(3))
			calls := 0
			err := service.ExecuteWithRetry(context.Background(), func() error {
				calls++
				if calls <= tt.failures {
					return Fetch(ReasonTimeout, "https://a.example", "//span", context.DeadlineExceeded)
				}
				return Fetch(ReasonLocatorNotFound, "https://a.example", "//span", fmt.Errorf("no node"))
			}, "fetch")

			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in %q", tt.want, err.Error())
			}
		})
	}
}

func TestService_ExecuteWithRetry_ContextCancelled(t *testing.T) {
	service := NewServiceWithRetry(RetryConfig{MaxRetries: 5, BaseDelay: time.Hour, BackoffFactor: 2})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := service.ExecuteWithRetry(ctx, func() error {
		return Fetch(ReasonNavigation, "https://a.example", "//span", fmt.Errorf("net::ERR_NAME_NOT_RESOLVED"))
	}, "fetch")

	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestService_CalculateDelay(t *testing.T) {
	service := NewServiceWithRetry(RetryConfig{
		MaxRetries:    5,
		BaseDelay:     time.Second,
		BackoffFactor: 2.0,
		MaxDelay:      5 * time.Second,
	})

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 5 * time.Second},
	}

	for _, tt := range tests {
		if got := service.calculateDelay(tt.attempt); got != tt.want {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.want, got)
		}
	}
}

func TestService_GetExitCode(t *testing.T) {
	service := NewService()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"config", New(KindConfig, "load", fmt.Errorf("bad yaml")), 2},
		{"startup", New(KindFatalStartup, "start browser", fmt.Errorf("exec: chrome not found")), 3},
		{"input", New(KindInput, "load rows", fmt.Errorf("missing columns")), 4},
		{"sink", New(KindSink, "open", fmt.Errorf("connection refused")), 5},
		{"wrapped startup", fmt.Errorf("run: %w", New(KindFatalStartup, "start", nil)), 3},
		{"plain", fmt.Errorf("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := service.GetExitCode(tt.err); got != tt.want {
				t.Errorf("expected exit code %d, got %d", tt.want, got)
			}
		})
	}
}

func TestService_FormatErrorForCLI(t *testing.T) {
	err := New(KindFatalStartup, "start browser", fmt.Errorf("exec: \"google-chrome\": executable file not found"))

	quiet := NewService().FormatErrorForCLI(err)
	if !strings.Contains(quiet, "Browser Failed To Start") {
		t.Errorf("expected title in output, got: %s", quiet)
	}
	if strings.Contains(quiet, "Technical details") {
		t.Errorf("technical details should be hidden without verbose, got: %s", quiet)
	}

	verbose := NewService().WithVerbose(true).FormatErrorForCLI(err)
	if !strings.Contains(verbose, "executable file not found") {
		t.Errorf("expected technical details with verbose, got: %s", verbose)
	}
}

func TestError_IsAndMessage(t *testing.T) {
	err := Fetch(ReasonLocatorNotFound, "https://shop.example/p/1", "//span[@class='price']", fmt.Errorf("deadline"))

	if !stderrors.Is(err, &Error{Kind: KindFetch}) {
		t.Error("expected match on kind")
	}
	if !stderrors.Is(err, &Error{Kind: KindFetch, Reason: ReasonLocatorNotFound}) {
		t.Error("expected match on kind and reason")
	}
	if stderrors.Is(err, &Error{Kind: KindFetch, Reason: ReasonTimeout}) {
		t.Error("did not expect match on different reason")
	}

	msg := err.Error()
	for _, want := range []string{"fetch", "locator_not_found", "https://shop.example/p/1", "//span[@class='price']", "deadline"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout", Fetch(ReasonTimeout, "", "", nil), true},
		{"navigation", Fetch(ReasonNavigation, "", "", nil), true},
		{"locator", Fetch(ReasonLocatorNotFound, "", "", nil), false},
		{"stopped", Fetch(ReasonStopped, "", "", nil), false},
		{"parse", New(KindParse, "parse price", nil), false},
		{"plain", fmt.Errorf("timeout"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
