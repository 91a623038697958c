// Package telemetry provides structured logging, distributed tracing,
// Prometheus metrics, and event publishing for the TestShift migration
// engine.
//
// The package is organized around a single Telemetry value that bundles the
// four concerns:
//
//	tel, err := telemetry.NewTelemetry(telemetry.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx := tel.WithContext(context.Background())
//
// Logging is built on zerolog. Loggers are immutable; the With* helpers
// return child loggers carrying run, product, and item fields:
//
//	log := telemetry.FromContext(ctx).WithRunID(runID).WithProduct("manager")
//	log.Info("creating folder")
//
// Tracing uses OpenTelemetry with OTLP or stdout exporters. Run, item, and
// product spans nest naturally:
//
//	ctx, span := tel.Tracer.StartRunSpan(ctx, runID)
//	defer span.End()
//
// Metrics are registered on a private Prometheus registry exposed through
// Handler or StartMetricsServer. Counters cover runs, migrated and failed
// items, backend API calls, classified errors, and rate-limit hits.
//
// Events deliver migration lifecycle notifications (run started, item
// migrated, item failed, attachment skipped, link skipped) to in-process
// subscribers, optionally buffered and batched.
package telemetry
