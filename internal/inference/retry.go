package inference

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/avast/retry-go"
)

// transientMarkers identify transport failures worth another request.
// Truncated bodies surface as "unexpected end of JSON input" from the response decoder.
var transientMarkers = []string{
	"connection refused",
	"connection reset",
	"i/o timeout",
	"unexpected end of JSON input",
	"response error 429",
	"response error 5",
}

// IsRetryableError reports whether err is a transient transport failure.
// A reply that arrived but could not be decoded is never retried here; it costs a refinement attempt instead.
func IsRetryableError(err error) bool {
	if err == nil || errors.Is(err, ErrInvalidOutput) || errors.Is(err, context.Canceled) {
		return false
	}
	message := err.Error()
	return slices.ContainsFunc(transientMarkers, func(marker string) bool {
		return strings.Contains(message, marker)
	})
}

// Retry calls fn once plus up to maxRetryAttempts more times while it fails with a retryable error.
func Retry(ctx context.Context, maxRetryAttempts uint, operation string, fn func() error) error {
	return retry.Do(
		func() error {
			err := fn()
			if err != nil && !IsRetryableError(err) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(maxRetryAttempts+1),
		retry.LastErrorOnly(true),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
		retry.OnRetry(func(n uint, err error) {
			slog.Default().Info("Retrying model API call",
				"operation", operation,
				"attempt", n+1,
				"lastError", err)
		}),
	)
}
