// internal/errors/service.go - Retry policy and user-facing error reporting
package errors

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// Service retries transient operations and turns errors into CLI output.
type Service struct {
	retryConfig    RetryConfig
	messageHandler *MessageHandler
}

// RetryConfig defines retry behavior
type RetryConfig struct {
	MaxRetries    int           `yaml:"max_retries" json:"max_retries"`
	BaseDelay     time.Duration `yaml:"base_delay" json:"base_delay"`
	BackoffFactor float64       `yaml:"backoff_factor" json:"backoff_factor"`
	MaxDelay      time.Duration `yaml:"max_delay" json:"max_delay"`
}

// MessageHandler converts technical errors to user-friendly messages
type MessageHandler struct {
	showTechnical bool
}

// DefaultRetryConfig does not retry at all.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    0,
		BaseDelay:     2 * time.Second,
		BackoffFactor: 2.0,
		MaxDelay:      30 * time.Second,
	}
}

// NewService creates a service with the default retry policy.
func NewService() *Service {
	return NewServiceWithRetry(DefaultRetryConfig())
}

// NewServiceWithRetry creates a service with the given retry policy.
func NewServiceWithRetry(cfg RetryConfig) *Service {
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = 2.0
	}
	return &Service{
		retryConfig:    cfg,
		messageHandler: &MessageHandler{showTechnical: false},
	}
}

// WithVerbose enables technical error details
func (s *Service) WithVerbose(verbose bool) *Service {
	s.messageHandler.showTechnical = verbose
	return s
}

// ExecuteWithRetry runs operation until it succeeds, fails permanently or runs out of attempts.
func (s *Service) ExecuteWithRetry(ctx context.Context, operation func() error, operationName string) error {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= s.retryConfig.MaxRetries; attempt++ {
		attempts++
		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err

		if !s.shouldRetry(err, attempt) {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.calculateDelay(attempt)):
		}
	}

	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("operation %s failed after %d attempts: %w", operationName, attempts, lastErr)
}

// shouldRetry determines if error is retryable
func (s *Service) shouldRetry(err error, attempt int) bool {
	if attempt >= s.retryConfig.MaxRetries {
		return false
	}
	return IsTransient(err)
}

// calculateDelay computes exponential backoff delay
func (s *Service) calculateDelay(attempt int) time.Duration {
	delay := time.Duration(float64(s.retryConfig.BaseDelay) * math.Pow(s.retryConfig.BackoffFactor, float64(attempt)))
	if s.retryConfig.MaxDelay > 0 && delay > s.retryConfig.MaxDelay {
		delay = s.retryConfig.MaxDelay
	}
	return delay
}

// GetUserFriendlyError converts technical errors to user-friendly messages
func (s *Service) GetUserFriendlyError(err error) (title, message string, suggestions []string) {
	if err == nil {
		return "", "", nil
	}

	switch KindOf(err) {
	case KindFatalStartup:
		return "Browser Failed To Start",
			"The headless browser could not be launched, so no rows were processed.",
			[]string{
				"Check that Chrome or Chromium is installed and on PATH",
				"Set browser.binary in the configuration to the browser executable",
				"Remove a stale browser.user_data_dir lock if another instance crashed",
			}
	case KindConfig:
		return "Configuration Error",
			"The configuration file is missing or invalid.",
			[]string{
				"Run 'pricescrapexter validate --config <file>' for details",
				"Generate a fresh file with 'pricescrapexter template'",
			}
	case KindInput:
		if strings.Contains(err.Error(), "columns") {
			return "Incorrect Columns",
				"Check the file and the columns in it.",
				[]string{"The file must contain the columns: title | url | xpath"}
		}
		return "Unsupported Input",
			"The rows file could not be read.",
			[]string{
				"Upload an Excel (xlsx) or csv file",
				"Make sure every row has title, url and xpath filled in",
			}
	case KindSink:
		return "Storage Error",
			"Results could not be written to the configured storage.",
			[]string{
				"Check sink.driver and sink.dsn in the configuration",
				"Verify the database is reachable",
			}
	}

	return "Unexpected Error",
		"Something went wrong. Check your file.",
		[]string{
			"Try running the command again",
			"Re-run with --verbose for technical details",
		}
}

// GetExitCode returns appropriate exit code for error
func (s *Service) GetExitCode(err error) int {
	if err == nil {
		return 0
	}

	switch KindOf(err) {
	case KindConfig:
		return 2
	case KindFatalStartup:
		return 3
	case KindInput:
		return 4
	case KindSink:
		return 5
	default:
		return 1
	}
}

// FormatErrorForCLI formats error for command-line display
func (s *Service) FormatErrorForCLI(err error) string {
	title, message, suggestions := s.GetUserFriendlyError(err)

	output := fmt.Sprintf("Error: %s\n%s\n", title, message)

	if s.messageHandler.showTechnical {
		output += fmt.Sprintf("\nTechnical details: %s\n", err.Error())
	}

	if len(suggestions) > 0 {
		output += "\nSuggestions:\n"
		for _, suggestion := range suggestions {
			output += fmt.Sprintf("  - %s\n", suggestion)
		}
	}

	return output
}
