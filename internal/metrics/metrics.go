// Package metrics records Prometheus metrics for provider calls by wrapping any
// provider.Provider. Providers themselves never record anything.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/systmms/secretsrc/pkg/provider"
)

// Outcome labels.
const (
	OutcomeSuccess        = "success"
	OutcomeNotFound       = "not_found"
	OutcomeConfiguration  = "configuration_error"
	OutcomeBackend        = "backend_error"
	OutcomeNotInitialized = "not_initialized"
	OutcomeCancelled      = "cancelled"
	OutcomeError          = "error"
)

// Metrics holds the collectors for provider calls.
type Metrics struct {
	initializeTotal *prometheus.CounterVec
	resolveTotal    *prometheus.CounterVec
	resolveDuration *prometheus.HistogramVec
	keysRequested   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		initializeTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretsrc_provider_initialize_total",
				Help: "Total number of provider initializations",
			},
			[]string{"provider", "outcome"},
		),
		resolveTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretsrc_provider_resolve_total",
				Help: "Total number of ResolveSecrets calls",
			},
			[]string{"provider", "outcome"},
		),
		resolveDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "secretsrc_provider_resolve_duration_seconds",
				Help:    "Duration of ResolveSecrets calls in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"provider"},
		),
		keysRequested: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretsrc_provider_keys_requested_total",
				Help: "Total number of keys requested from providers",
			},
			[]string{"provider"},
		),
	}
}

// Outcome classifies the error of a provider call into an outcome label.
func Outcome(err error) string {
	var (
		cfgErr     provider.ConfigurationError
		notFound   provider.KeyNotFoundError
		backendErr provider.BackendError
		notInit    provider.NotInitializedError
	)
	switch {
	case err == nil:
		return OutcomeSuccess
	case provider.IsCancellation(err):
		return OutcomeCancelled
	case errors.As(err, &notFound):
		return OutcomeNotFound
	case errors.As(err, &cfgErr):
		return OutcomeConfiguration
	case errors.As(err, &notInit):
		return OutcomeNotInitialized
	case errors.As(err, &backendErr):
		return OutcomeBackend
	default:
		return OutcomeError
	}
}

// Instrument returns p wrapped so that every Initialize and ResolveSecrets call is
// recorded. If p can store secrets, so can the returned provider.
func (m *Metrics) Instrument(p provider.Provider) provider.Provider {
	base := &instrumented{Provider: p, metrics: m, key: p.Identity().Key}
	if setter, ok := p.(provider.SecretSetter); ok {
		return &instrumentedSetter{instrumented: base, setter: setter}
	}
	return base
}

type instrumented struct {
	provider.Provider
	metrics *Metrics
	key     string
}

func (i *instrumented) Initialize(ctx context.Context, configURI string) error {
	err := i.Provider.Initialize(ctx, configURI)
	i.metrics.initializeTotal.WithLabelValues(i.key, Outcome(err)).Inc()
	return err
}

func (i *instrumented) ResolveSecrets(ctx context.Context, keys []string) (map[string]string, error) {
	start := time.Now()
	result, err := i.Provider.ResolveSecrets(ctx, keys)

	i.metrics.resolveDuration.WithLabelValues(i.key).Observe(time.Since(start).Seconds())
	i.metrics.resolveTotal.WithLabelValues(i.key, Outcome(err)).Inc()
	i.metrics.keysRequested.WithLabelValues(i.key).Add(float64(len(keys)))
	return result, err
}

type instrumentedSetter struct {
	*instrumented
	setter provider.SecretSetter
}

func (i *instrumentedSetter) SetSecret(ctx context.Context, key, value string, overwrite bool) error {
	return i.setter.SetSecret(ctx, key, value, overwrite)
}

// WriteTextfile writes every metric gathered by g to path in the Prometheus text format,
// suitable for the node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
