package weave

import (
	"log/slog"

	"github.com/randalmurphal/weave/pkg/weave/config"
	"github.com/randalmurphal/weave/pkg/weave/observability"
)

// options holds configuration for composed streams.
type options struct {
	buffer  int
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

// defaultOptions returns the default stream configuration.
func defaultOptions() options {
	return options{
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
}

func (o *options) apply(opts []Option) {
	for _, opt := range opts {
		opt(o)
	}
}

// Option configures composed stream behavior.
type Option func(*options)

// WithBuffer sets the output channel buffer. Default: 0 (each emission
// rendezvous with the consumer).
func WithBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.buffer = n
		}
	}
}

// WithLogger sets the logger. Default: nil (no logging).
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics recorder. Default: no-op.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithSpans sets the span manager. Default: no-op.
func WithSpans(s observability.SpanManager) Option {
	return func(o *options) {
		if s != nil {
			o.spans = s
		}
	}
}

// OptionsFromConfig derives options from a loaded configuration.
//
// Recognized keys:
//   - buffer (int): output channel buffer size
//   - metrics (bool): enable OpenTelemetry metrics
//   - tracing (bool): enable OpenTelemetry tracing
func OptionsFromConfig(cfg config.Config) []Option {
	var opts []Option
	if n := cfg.Int("buffer", 0); n > 0 {
		opts = append(opts, WithBuffer(n))
	}
	if cfg.Bool("metrics", false) {
		opts = append(opts, WithMetrics(observability.NewMetricsRecorder()))
	}
	if cfg.Bool("tracing", false) {
		opts = append(opts, WithSpans(observability.NewSpanManager()))
	}
	return opts
}
