// Package metrics exposes dispatch and session counters for Prometheus.
package metrics

import (
	"wa-group-gateway/internal/session"

	"github.com/prometheus/client_golang/prometheus"
)

type Recorder struct {
	registry     *prometheus.Registry
	dispatches   *prometheus.CounterVec
	sendAttempts prometheus.Counter
	sessionState prometheus.Gauge
	transitions  *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_dispatch_total",
				Help: "Dispatch requests by outcome",
			},
			[]string{"outcome"},
		),
		sendAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_send_attempts_total",
			Help: "Calls made to the session client's send operation",
		}),
		sessionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_session_state",
			Help: "0 not ready, 1 pairing pending, 2 ready",
		}),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_session_transitions_total",
				Help: "Session lifecycle transitions by resulting state",
			},
			[]string{"state"},
		),
	}

	r.registry.MustRegister(r.dispatches, r.sendAttempts, r.sessionState, r.transitions)
	return r
}

// Registry is served on /metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) RecordDispatch(outcome string, attempts int) {
	r.dispatches.WithLabelValues(outcome).Inc()
	if attempts > 0 {
		r.sendAttempts.Add(float64(attempts))
	}
}

func (r *Recorder) ObserveState(s session.State) {
	r.sessionState.Set(float64(s))
	r.transitions.WithLabelValues(s.String()).Inc()
}
