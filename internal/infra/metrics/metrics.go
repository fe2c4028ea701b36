package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics captures counters for the generation pipeline.
type Metrics interface {
	IncSubmission(kind, outcome string)
	IncPoll(kind, state string)
	ObserveProviderCall(kind, op string, durationSeconds float64)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncSubmission(string, string)            {}
func (Noop) IncPoll(string, string)                  {}
func (Noop) ObserveProviderCall(string, string, float64) {}

// Prom implements Metrics backed by Prometheus collectors.
type Prom struct {
	submissions  *prometheus.CounterVec
	polls        *prometheus.CounterVec
	providerCall *prometheus.HistogramVec
	once         sync.Once
}

func NewProm(namespace string) *Prom {
	p := &Prom{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_submissions_total",
			Help:      "Generation submissions by kind and outcome",
		}, []string{"kind", "outcome"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_polls_total",
			Help:      "Status polls by kind and normalized state",
		}, []string{"kind", "state"}),
		providerCall: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_call_duration_seconds",
			Help:      "Provider round-trip duration by kind and operation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "op"}),
	}
	p.register()
	return p
}

func (p *Prom) register() {
	p.once.Do(func() {
		prometheus.MustRegister(p.submissions, p.polls, p.providerCall)
	})
}

func (p *Prom) IncSubmission(kind, outcome string) {
	p.submissions.WithLabelValues(kind, outcome).Inc()
}

func (p *Prom) IncPoll(kind, state string) {
	p.polls.WithLabelValues(kind, state).Inc()
}

func (p *Prom) ObserveProviderCall(kind, op string, durationSeconds float64) {
	p.providerCall.WithLabelValues(kind, op).Observe(durationSeconds)
}

// Handler exposes the default Prometheus registry over HTTP.
func Handler() http.Handler {
	return promhttp.Handler()
}

var (
	_ Metrics = (*Prom)(nil)
	_ Metrics = Noop{}
)
