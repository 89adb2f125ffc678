package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DefaultAttempts is the attempt budget for every remote call site.
const DefaultAttempts = 3

// WithRetry invokes op until it succeeds or attempts calls have failed.
// Attempts run back to back with no delay. The last error is returned
// unchanged; earlier failures are only logged.
//
// TODO: the tracker's secondary rate limits would be better served by a
// jittered exponential policy here; that needs a decision on how long a
// sweep may stall before it counts as failed.
func WithRetry[T any](ctx context.Context, operation string, attempts int, op func(context.Context) (T, error)) (T, error) {
	if attempts < 1 {
		attempts = 1
	}

	var b backoff.BackOff = &backoff.ZeroBackOff{}
	b = backoff.WithMaxRetries(b, uint64(attempts-1))
	b = backoff.WithContext(b, ctx)

	attempt := 0
	return backoff.RetryNotifyWithData(func() (T, error) {
		attempt++
		return op(ctx)
	}, b, func(err error, _ time.Duration) {
		slog.Warn("remote call failed, retrying",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err,
		)
		retryCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
	})
}
