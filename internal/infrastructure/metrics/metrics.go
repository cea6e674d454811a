package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyjia/coselection/internal/domain/workflow"
)

// Recorder exposes lifecycle and HTTP counters to Prometheus
type Recorder struct {
	gatherer prometheus.Gatherer

	transitions *prometheus.CounterVec
	claims      *prometheus.CounterVec
	sweepRuns   *prometheus.CounterVec
	sweepItems  *prometheus.CounterVec
	httpReqs    *prometheus.CounterVec
	httpLatency *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry under the given namespace
func New(namespace string) *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewWithRegistry(namespace, reg, reg)
}

// NewWithRegistry registers the collectors on reg and serves them from g
func NewWithRegistry(namespace string, reg prometheus.Registerer, g prometheus.Gatherer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		gatherer: g,
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Transition attempts by entity kind, target state and outcome",
		}, []string{"kind", "to", "outcome"}),
		claims: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_total",
			Help:      "Lead claim attempts by outcome",
		}, []string{"outcome"}),
		sweepRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_runs_total",
			Help:      "Completed sweep passes",
		}, []string{"pass"}),
		sweepItems: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_items_total",
			Help:      "Entities seen by sweep passes, by result",
		}, []string{"pass", "result"}),
		httpReqs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		httpLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Request latency",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"method", "route"}),
	}
}

// ObserveTransition counts one transition attempt
func (r *Recorder) ObserveTransition(kind workflow.Kind, to workflow.State, outcome string) {
	r.transitions.WithLabelValues(kind.String(), to.String(), outcome).Inc()
}

// ObserveClaim counts one claim attempt
func (r *Recorder) ObserveClaim(outcome string) {
	r.claims.WithLabelValues(outcome).Inc()
}

// ObserveSweep counts one completed pass and its applied and skipped entities
func (r *Recorder) ObserveSweep(pass string, applied, skipped int) {
	r.sweepRuns.WithLabelValues(pass).Inc()
	r.sweepItems.WithLabelValues(pass, "applied").Add(float64(applied))
	r.sweepItems.WithLabelValues(pass, "skipped").Add(float64(skipped))
}

// ObserveHTTP records one served request
func (r *Recorder) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	r.httpReqs.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
