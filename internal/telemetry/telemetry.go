// Package telemetry wires OpenTelemetry metrics for triagebot.
//
// Metrics are disabled by default and cost nothing when off.
//
//	TRIAGEBOT_OTEL_ENABLED=true   enable metrics (default: off)
//	OTEL_SERVICE_NAME=...         override the service name
//
// When enabled, counters are written to stderr by the stdout exporter every
// 15 seconds and once more at Shutdown, so a single run always reports.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

var shutdownFns []func(context.Context) error

// Enabled reports whether metrics are active (TRIAGEBOT_OTEL_ENABLED=true).
func Enabled() bool {
	return os.Getenv("TRIAGEBOT_OTEL_ENABLED") == "true"
}

// Init installs the global meter provider. Without TRIAGEBOT_OTEL_ENABLED it
// installs a no-op provider and returns immediately.
func Init(ctx context.Context, serviceName, version string) error {
	return initWithWriter(ctx, serviceName, version, os.Stderr)
}

func initWithWriter(ctx context.Context, serviceName, version string, w io.Writer) error {
	if !Enabled() {
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		return nil
	}

	if name := os.Getenv("OTEL_SERVICE_NAME"); name != "" {
		serviceName = name
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
		resource.WithHost(),
	)
	if err != nil {
		return fmt.Errorf("telemetry: resource: %w", err)
	}

	exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w), stdoutmetric.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("telemetry: stdout exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(15*time.Second))),
	)
	otel.SetMeterProvider(mp)
	shutdownFns = append(shutdownFns, mp.Shutdown)

	return nil
}

// Shutdown flushes pending metrics and shuts the providers down.
func Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range shutdownFns {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	shutdownFns = nil
	return errors.Join(errs...)
}
