package application

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/ericfisherdev/triagebot/internal/application"

// Instruments are bound to the global meter provider, which forwards to the
// provider installed by telemetry.Init even when that happens later.
var (
	processedCounter = newCounter("triagebot.items.processed", "Items examined by a run")
	actedCounter     = newCounter("triagebot.items.acted", "Items a run commented on, closed or locked")
	skippedCounter   = newCounter("triagebot.items.skipped", "Items left untouched, by skip reason")
	retryCounter     = newCounter("triagebot.remote.retries", "Remote calls retried after a failure")
)

func newCounter(name, description string) metric.Int64Counter {
	counter, err := otel.Meter(meterName).Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		slog.Warn("metric instrument unavailable", "name", name, "error", err)
		return noop.Int64Counter{}
	}
	return counter
}
