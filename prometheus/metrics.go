// Package prometheus exports clone and translation metrics using the
// Prometheus client library.
package prometheus

import (
	"context"
	"net/http"
	"time"

	"github.com/fwojciec/contentsync"
	"github.com/fwojciec/contentsync/clone"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "contentsync"

// Outcome label values for contentsync_clone_outcomes_total.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Metrics holds the collectors registered for one process.
type Metrics struct {
	reg *prom.Registry

	outcomes        *prom.CounterVec
	failures        *prom.CounterVec
	mismatches      prom.Counter
	malformed       prom.Counter
	fragments       prom.Histogram
	requests        *prom.CounterVec
	requestDuration prom.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg gets a fresh registry.
func NewMetrics(reg *prom.Registry) *Metrics {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	m := &Metrics{
		reg: reg,
		outcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "clone_outcomes_total",
			Help:      "Processed items by final outcome",
		}, []string{"outcome"}),
		failures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "clone_failures_total",
			Help:      "Failed items by reason",
		}, []string{"reason"}),
		mismatches: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "fragment_mismatches_total",
			Help:      "Items whose translation returned a different fragment count",
		}),
		malformed: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_documents_total",
			Help:      "Structured documents that could not be parsed and were translated as plain text",
		}),
		fragments: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "fragments_per_item",
			Help:      "Translatable fragments extracted per item",
			Buckets:   prom.ExponentialBuckets(1, 2, 10),
		}),
		requests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "translation_requests_total",
			Help:      "Translation requests by result",
		}, []string{"kind", "result"}),
		requestDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "translation_duration_seconds",
			Help:      "Duration of translation requests",
			Buckets:   prom.DefBuckets,
		}),
	}
	reg.MustRegister(m.outcomes, m.failures, m.mismatches, m.malformed, m.fragments, m.requests, m.requestDuration)
	return m
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prom.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Observe records a progress event. It can be used as a clone.ProgressFunc.
func (m *Metrics) Observe(e clone.ProgressEvent) {
	switch {
	case e.State == clone.StateSucceeded:
		m.outcomes.WithLabelValues(OutcomeSucceeded).Inc()
	case e.State == clone.StateFailed:
		m.outcomes.WithLabelValues(OutcomeFailed).Inc()
		m.failures.WithLabelValues(e.Reason).Inc()
	case e.State == clone.StateExtracted:
		if e.Malformed {
			m.malformed.Inc()
		} else {
			m.fragments.Observe(float64(e.Fragments))
		}
	case e.Mismatch():
		m.mismatches.Inc()
	}
}

// Progress returns a clone.ProgressFunc that records events in m and then
// passes them to next, if set.
func (m *Metrics) Progress(next clone.ProgressFunc) clone.ProgressFunc {
	return func(e clone.ProgressEvent) {
		m.Observe(e)
		if next != nil {
			next(e)
		}
	}
}

func (m *Metrics) observeRequest(kind string, begin time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.requests.WithLabelValues(kind, result).Inc()
	m.requestDuration.Observe(time.Since(begin).Seconds())
}

// Compile-time interface checks.
var (
	_ contentsync.Translator         = (*InstrumentedTranslator)(nil)
	_ contentsync.FragmentTranslator = (*InstrumentedFragmentTranslator)(nil)
)

// InstrumentedTranslator counts and times Translate calls.
type InstrumentedTranslator struct {
	next    contentsync.Translator
	metrics *Metrics
}

// NewInstrumentedTranslator wraps next with request metrics.
func NewInstrumentedTranslator(next contentsync.Translator, m *Metrics) *InstrumentedTranslator {
	return &InstrumentedTranslator{next: next, metrics: m}
}

// Translate delegates to the wrapped translator.
func (t *InstrumentedTranslator) Translate(ctx context.Context, blocks map[string]string, targetLanguage string) (out map[string]string, err error) {
	defer func(begin time.Time) { t.metrics.observeRequest("blocks", begin, err) }(time.Now())
	return t.next.Translate(ctx, blocks, targetLanguage)
}

// InstrumentedFragmentTranslator counts and times TranslateFragments calls.
type InstrumentedFragmentTranslator struct {
	next    contentsync.FragmentTranslator
	metrics *Metrics
}

// NewInstrumentedFragmentTranslator wraps next with request metrics.
func NewInstrumentedFragmentTranslator(next contentsync.FragmentTranslator, m *Metrics) *InstrumentedFragmentTranslator {
	return &InstrumentedFragmentTranslator{next: next, metrics: m}
}

// TranslateFragments delegates to the wrapped translator.
func (t *InstrumentedFragmentTranslator) TranslateFragments(ctx context.Context, fragments []string, targetLanguage string) (out []string, err error) {
	defer func(begin time.Time) { t.metrics.observeRequest("fragments", begin, err) }(time.Now())
	return t.next.TranslateFragments(ctx, fragments, targetLanguage)
}
