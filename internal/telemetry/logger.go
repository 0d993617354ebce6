package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// InitLoggerProvider initializes the OpenTelemetry logger provider and returns
// a slog.Logger bridged to it, so log records carry the active trace context.
func InitLoggerProvider(ctx context.Context, serviceName, otlpEndpoint, environment string) (*sdklog.LoggerProvider, *slog.Logger, error) {
	// Create OTLP gRPC exporter
	conn, err := newConn(otlpEndpoint)
	if err != nil {
		return nil, nil, err
	}

	exporter, err := otlploggrpc.New(ctx, otlploggrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create log exporter: %w", err)
	}

	res, err := newResource(serviceName, environment)
	if err != nil {
		return nil, nil, err
	}

	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	)

	// Set global logger provider
	global.SetLoggerProvider(lp)

	// Create slog logger with OTel bridge
	logger := otelslog.NewLogger(serviceName)

	return lp, logger, nil
}
