// Package metrics exposes Prometheus instrumentation for remote collection
// calls and the HTTP API.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HerbHall/atelier/internal/collection"
)

const namespace = "atelier"

// Outcome label values.
const (
	OutcomeOK         = "ok"
	OutcomeNotFound   = "not_found"
	OutcomeValidation = "validation"
	OutcomeCanceled   = "canceled"
	OutcomeError      = "error"
)

// Recorder owns the atelier collectors.
type Recorder struct {
	registry prometheus.Gatherer

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewRecorder creates the collectors and registers them with reg. A nil reg
// gets a fresh private registry.
func NewRecorder(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	r := &Recorder{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_requests_total",
			Help:      "Total number of remote collection calls.",
		}, []string{"collection", "op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_request_duration_seconds",
			Help:      "Latency distribution of remote collection calls.",
			Buckets: []float64{
				0.005, 0.01, 0.025, 0.05,
				0.1, 0.25, 0.5,
				1, 2.5, 5, 10,
			},
		}, []string{"collection", "op"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP API requests.",
		}, []string{"code", "method"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP API requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"code", "method"}),
	}
	reg.MustRegister(r.requests, r.duration, r.httpRequests, r.httpDuration)
	return r
}

// Gatherer returns the registry the collectors live in.
func (r *Recorder) Gatherer() prometheus.Gatherer { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Middleware counts and times every request passing through next.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerDuration(r.httpDuration,
		promhttp.InstrumentHandlerCounter(r.httpRequests, next))
}

// Observe records one remote call.
func (r *Recorder) Observe(coll, op string, elapsed time.Duration, err error) {
	r.requests.WithLabelValues(coll, op, Outcome(err)).Inc()
	r.duration.WithLabelValues(coll, op).Observe(elapsed.Seconds())
}

// Outcome classifies err into an outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, collection.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, collection.ErrValidation):
		return OutcomeValidation
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}

// Compile-time interface guard.
var _ collection.Resource[anyRecord] = (*instrumented[anyRecord])(nil)

type anyRecord struct{}

func (anyRecord) RecordID() string     { return "" }
func (anyRecord) RecordSortOrder() int { return 0 }

type instrumented[T collection.Record] struct {
	next collection.Resource[T]
	rec  *Recorder
}

// Instrument wraps res so every call is recorded by rec. A nil rec returns
// res unchanged.
func Instrument[T collection.Record](res collection.Resource[T], rec *Recorder) collection.Resource[T] {
	if rec == nil {
		return res
	}
	return &instrumented[T]{next: res, rec: rec}
}

func (i *instrumented[T]) Name() string { return i.next.Name() }

func (i *instrumented[T]) List(ctx context.Context, orderBy string) ([]T, error) {
	start := time.Now()
	items, err := i.next.List(ctx, orderBy)
	i.rec.Observe(i.next.Name(), "list", time.Since(start), err)
	return items, err
}

func (i *instrumented[T]) Insert(ctx context.Context, fields collection.Fields) (T, error) {
	start := time.Now()
	rec, err := i.next.Insert(ctx, fields)
	i.rec.Observe(i.next.Name(), "insert", time.Since(start), err)
	return rec, err
}

func (i *instrumented[T]) Update(ctx context.Context, id string, fields collection.Fields) error {
	start := time.Now()
	err := i.next.Update(ctx, id, fields)
	i.rec.Observe(i.next.Name(), "update", time.Since(start), err)
	return err
}

func (i *instrumented[T]) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := i.next.Delete(ctx, id)
	i.rec.Observe(i.next.Name(), "delete", time.Since(start), err)
	return err
}
