// Package otel wires pane-pilot's traces and metrics to an OTLP collector.
//
// Every span and data point carries the tmux server it talks to: the socket
// name and, for remote servers, the ssh host. Without an endpoint nothing is
// exported, but spans and instruments are still usable.
package otel

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	serviceName    = "pane-pilot"
	exportInterval = 15 * time.Second
	defaultSocket  = "default"
)

// Resource attribute keys describing the controlled tmux server.
const (
	SocketKey     = attribute.Key("tmux.socket")
	RemoteKey     = attribute.Key("tmux.remote")
	RemoteHostKey = attribute.Key("tmux.remote.host")
)

// Version is overwritten with the build version by cmd.
var Version = "dev"

// OTELConfig selects the collector and describes the tmux server pane-pilot
// drives.
type OTELConfig struct {
	Endpoint string // OTLP base URL, e.g. "http://localhost:4318"
	Headers  string // key=value pairs separated by commas
	Socket   string // tmux -L socket name; empty means the default server
	SSH      string // ssh command prefix for a remote server
}

// Telemetry holds the providers and metric instruments. Init never returns a
// nil Telemetry, and a nil *Telemetry is still safe to use.
type Telemetry struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider

	Tracer  trace.Tracer
	Metrics *Metrics
}

// parseHeaders reads the OTEL_EXPORTER_OTLP_HEADERS format.
func parseHeaders(raw string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, val, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(val)
	}
	return headers
}

// remoteHost extracts the destination from an ssh prefix such as
// "ssh -p 2222 dev@devbox". The user part is dropped.
func remoteHost(ssh string) string {
	fields := strings.Fields(ssh)
	if len(fields) < 2 {
		return ""
	}
	host := fields[len(fields)-1]
	if _, after, ok := strings.Cut(host, "@"); ok {
		host = after
	}
	return host
}

// serverAttributes describes the tmux server for the resource.
func serverAttributes(cfg OTELConfig) []attribute.KeyValue {
	socket := cfg.Socket
	if socket == "" {
		socket = defaultSocket
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(Version),
		SocketKey.String(socket),
		RemoteKey.Bool(cfg.SSH != ""),
	}
	if host := remoteHost(cfg.SSH); host != "" {
		attrs = append(attrs, RemoteHostKey.String(host))
	}
	return attrs
}

// Init builds telemetry for one pane-pilot process. On error the returned
// Telemetry is a working no-op so callers can log and carry on.
func Init(ctx context.Context, cfg OTELConfig) (*Telemetry, error) {
	t := &Telemetry{Tracer: otel.Tracer(serviceName)}
	metrics, err := NewMetrics()
	if err != nil {
		return t, fmt.Errorf("otel metrics: %w", err)
	}
	t.Metrics = metrics

	if cfg.Endpoint == "" {
		return t, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(serverAttributes(cfg)...),
		resource.WithHost(),
	)
	if err != nil {
		return t, fmt.Errorf("otel resource: %w", err)
	}
	if err := t.export(ctx, cfg, res); err != nil {
		return t, err
	}

	// The global tracer and meter delegate to these once set.
	otel.SetTracerProvider(t.tp)
	otel.SetMeterProvider(t.mp)
	return t, nil
}

// export creates the OTLP http exporters. The endpoint's path is kept as a
// prefix for /v1/traces and /v1/metrics.
func (t *Telemetry) export(ctx context.Context, cfg OTELConfig, res *resource.Resource) error {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || u.Host == "" {
		return fmt.Errorf("otel: invalid endpoint URL %q", cfg.Endpoint)
	}
	base := strings.TrimRight(u.Path, "/")
	headers := parseHeaders(cfg.Headers)

	traceOpts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(u.Host),
		otlptracehttp.WithURLPath(base + "/v1/traces"),
		otlptracehttp.WithHeaders(headers),
	}
	metricOpts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(u.Host),
		otlpmetrichttp.WithURLPath(base + "/v1/metrics"),
		otlpmetrichttp.WithHeaders(headers),
	}
	if u.Scheme == "http" {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
		metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
	}

	traceExp, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return fmt.Errorf("otel trace exporter: %w", err)
	}
	metricExp, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		_ = traceExp.Shutdown(ctx)
		return fmt.Errorf("otel metric exporter: %w", err)
	}

	t.tp = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	t.mp = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp,
			sdkmetric.WithInterval(exportInterval))),
		sdkmetric.WithResource(res),
	)
	return nil
}

// Shutdown flushes pending spans and data points.
func (t *Telemetry) Shutdown(ctx context.Context) {
	if t == nil {
		return
	}
	if t.tp != nil {
		_ = t.tp.Shutdown(ctx)
	}
	if t.mp != nil {
		_ = t.mp.Shutdown(ctx)
	}
}

// MetricsOrNil returns the instruments, or nil for a nil Telemetry.
func (t *Telemetry) MetricsOrNil() *Metrics {
	if t == nil {
		return nil
	}
	return t.Metrics
}
