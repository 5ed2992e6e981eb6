// Package telemetry provides observability instrumentation for vtree sessions.
//
// The telemetry package integrates structured logging (zerolog), distributed
// tracing (OpenTelemetry) and metrics (Prometheus) into one system, and
// serves them with a small status HTTP server (chi).
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
// Wire a session into all three pillars:
//
//	session, report, err := widgets.NewSession(ctx, tk, root, tel.SessionOptions("ui")...)
//
// Every cycle then logs with session and cycle_id fields, records one
// "session.create" or "session.update" span, and updates the cycle
// metrics.
//
// # Structured Logging
//
//	logger := tel.Logger.NewComponentLogger("watch")
//	logger.WithSession("ui").WithCycleID(id).Info("Applied snapshot")
//
// Log levels: trace, debug, info, warn, error, fatal
//
// # Distributed Tracing
//
// Supported exporters: OTLP over gRPC (production), stdout (development),
// none. RecordError tags spans with the vtree error class and code.
//
// # Metrics
//
//	vtree_cycles_total{session,kind,status}
//	vtree_cycle_duration_seconds{session,kind}
//	vtree_diff_events_total{session,op}
//	vtree_tree_nodes{session}
//	vtree_registry_entries{session}
//	vtree_errors_by_class_total{class}
//	vtree_errors_by_code_total{code}
//	vtree_source_reloads_total{source,status}
//
// # Status Server
//
//	srv := telemetry.NewServer(cfg.Metrics, tel.Metrics, tel.Logger)
//	srv.AddHealthCheck("store", store.HealthCheck)
//	srv.HandleJSON("/registry", registryView)
//	_ = srv.Start()
//
// # Configuration
//
//	// Production (JSON logs, OTLP traces, 10% sampling)
//	cfg := telemetry.ProductionConfig()
package telemetry
