// Package metrics is the fire-and-forget metrics sink. Recording failures
// are logged and swallowed; they never propagate to the request path.
package metrics

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Recorder records one metric sample with string dimensions.
type Recorder interface {
	Record(ctx context.Context, name string, dims map[string]string, value float64, unit string)
}

// Noop discards all samples.
type Noop struct{}

func (Noop) Record(context.Context, string, map[string]string, float64, string) {}

// OTel records samples as OpenTelemetry counters, created lazily per metric
// name. Safe for concurrent use.
type OTel struct {
	meter  metric.Meter
	logger *slog.Logger

	mu       sync.Mutex
	counters map[string]metric.Float64Counter
}

// NewOTel creates a recorder on the global meter provider.
func NewOTel(logger *slog.Logger) *OTel {
	if logger == nil {
		logger = slog.Default()
	}
	return &OTel{
		meter:    otel.Meter("assistant-gateway"),
		logger:   logger,
		counters: make(map[string]metric.Float64Counter),
	}
}

func (o *OTel) Record(ctx context.Context, name string, dims map[string]string, value float64, unit string) {
	counter, err := o.counter(name, unit)
	if err != nil {
		o.logger.Warn("failed to record metric",
			slog.String("metric", name),
			slog.String("error", err.Error()),
		)
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(dims))
	for k, v := range dims {
		attrs = append(attrs, attribute.String(k, v))
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

func (o *OTel) counter(name, unit string) (metric.Float64Counter, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if counter, ok := o.counters[name]; ok {
		return counter, nil
	}
	counter, err := o.meter.Float64Counter(name, metric.WithUnit(otelUnit(unit)))
	if err != nil {
		return nil, err
	}
	o.counters[name] = counter
	return counter, nil
}

// otelUnit translates the CloudWatch-style unit names the orchestrator emits
// into UCUM units.
func otelUnit(unit string) string {
	switch unit {
	case "Count":
		return "1"
	case "Seconds":
		return "s"
	default:
		return ""
	}
}
