package obs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Observability bundles the logging, tracing and metrics providers for the
// process. One instance is constructed at startup and shared.
type Observability struct {
	config       Config
	logger       *Logger
	tracing      *TracingProvider
	metrics      *MetricsProvider
	shutdownOnce sync.Once
}

var (
	globalObs *Observability
	globalMu  sync.RWMutex
)

func Init(ctx context.Context, config Config) (*Observability, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalObs != nil {
		return globalObs, nil
	}

	o := &Observability{
		config: config,
		logger: newLogger(config),
	}

	var err error
	if o.tracing, err = newTracingProvider(ctx, config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTracingInitFailed, err)
	}
	if o.metrics, err = newMetricsProvider(ctx, config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetricsInitFailed, err)
	}

	o.logger.Info(ctx, "observability initialized",
		"otlp_endpoint", config.OTLPEndpoint,
		"metrics_enabled", config.MetricsEnabled,
	)

	globalObs = o
	return o, nil
}

func MustInit(ctx context.Context, config Config) *Observability {
	o, err := Init(ctx, config)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize observability: %v", err))
	}
	return o
}

func Global() *Observability {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalObs
}

func (o *Observability) Shutdown(ctx context.Context) error {
	var shutdownErr error

	o.shutdownOnce.Do(func() {
		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		var errs []error
		if o.tracing != nil {
			if err := o.tracing.ForceFlush(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("failed to flush traces: %w", err))
			}
			if err := o.tracing.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("failed to shutdown tracing: %w", err))
			}
		}
		if o.metrics != nil {
			if err := o.metrics.ForceFlush(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("failed to flush metrics: %w", err))
			}
			if err := o.metrics.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("failed to shutdown metrics: %w", err))
			}
		}
		if len(errs) > 0 {
			shutdownErr = fmt.Errorf("%w: %v", ErrShutdownFailed, errs)
		}
	})

	return shutdownErr
}

func (o *Observability) Logger() *Logger {
	return o.logger
}

func (o *Observability) MetricsProvider() *MetricsProvider {
	return o.metrics
}

func (o *Observability) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if o.tracing == nil {
		return otel.Tracer(name, opts...)
	}
	return o.tracing.Tracer(name, opts...)
}

func (o *Observability) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if o.metrics == nil {
		return otel.Meter(name, opts...)
	}
	return o.metrics.Meter(name, opts...)
}

func Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	globalMu.RLock()
	o := globalObs
	globalMu.RUnlock()
	if o == nil {
		return otel.Tracer(name, opts...)
	}
	return o.Tracer(name, opts...)
}

func Shutdown(ctx context.Context) error {
	globalMu.RLock()
	o := globalObs
	globalMu.RUnlock()
	if o == nil {
		return ErrNotInitialized
	}
	return o.Shutdown(ctx)
}
