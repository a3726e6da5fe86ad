// Package providers implements the content generation capability used by
// every pipeline stage. Two interchangeable providers are supported: Gemini
// (vision+text over raw HTTP) and OpenAI (via the official SDK). Provider
// selection is an explicit configuration choice made once at pipeline start.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/avast/retry-go/v4"
)

// Provider generates text from a prompt and an optional JPEG image.
// Implementations retry transient failures internally; a returned error means
// the call is exhausted and the caller decides whether that is fatal for its
// stage or a soft degrade.
type Provider interface {
	// Generate returns the generated text for the prompt. image may be nil.
	Generate(ctx context.Context, prompt string, image []byte) (string, error)

	// Name returns the provider identifier ("gemini", "openai", "mock").
	Name() string

	// Model returns the model identifier in use.
	Model() string
}

// ErrNoContent indicates the provider responded but produced no usable text.
var ErrNoContent = errors.New("provider returned no content")

const (
	maxAttempts    = 3
	requestTimeout = 3 * time.Minute
)

// Backoff bounds are variables so tests can shrink them.
var (
	retryBaseDelay = 4 * time.Second
	retryMaxDelay  = 10 * time.Second
)

// apiError is a provider HTTP error carrying the upstream status code.
type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("provider error (status %d): %s", e.status, e.message)
}

// isRetryable classifies errors. Network and timeout failures plus rate
// limiting and server errors are retried; everything else fails immediately.
func isRetryable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.status == 429 || ae.status >= 500
	}
	return false
}

// withRetry runs fn under the shared retry policy: up to 3 attempts with
// exponential backoff between 4s and 10s, aborting early on non-retryable
// errors or context cancellation.
func withRetry(ctx context.Context, fn func() (string, error)) (string, error) {
	return retry.DoWithData(fn,
		retry.Context(ctx),
		retry.Attempts(maxAttempts),
		retry.Delay(retryBaseDelay),
		retry.MaxDelay(retryMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(isRetryable),
		retry.LastErrorOnly(true),
	)
}
