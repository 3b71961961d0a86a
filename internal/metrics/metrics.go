// Package metrics exposes scheduler activity as Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/example/study-scheduler/internal/scheduler"
)

// Recorder implements application.MetricsRecorder on a Prometheus registerer.
type Recorder struct {
	SessionsProposed   prometheus.Counter
	SessionTransitions *prometheus.CounterVec
	Conflicts          prometheus.Counter
	MatchResults       prometheus.Histogram
}

// NewRecorder registers the scheduler collectors on reg. A nil reg falls back
// to prometheus.DefaultRegisterer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		SessionsProposed: factory.NewCounter(prometheus.CounterOpts{
			Name: "studysched_sessions_proposed_total",
			Help: "Total study sessions proposed",
		}),
		SessionTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "studysched_session_transitions_total",
			Help: "Session status transition attempts by target status and outcome",
		}, []string{"status", "outcome"}),
		Conflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "studysched_conflicts_total",
			Help: "Confirmations refused because of an overlapping confirmed session",
		}),
		MatchResults: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "studysched_match_candidates",
			Help:    "Number of partners returned per match suggestion",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 25},
		}),
	}
}

func (r *Recorder) SessionProposed() {
	r.SessionsProposed.Inc()
}

func (r *Recorder) SessionTransition(target scheduler.Status, outcome string) {
	r.SessionTransitions.WithLabelValues(string(target), outcome).Inc()
}

func (r *Recorder) ConflictDetected() {
	r.Conflicts.Inc()
}

func (r *Recorder) MatchCandidates(count int) {
	r.MatchResults.Observe(float64(count))
}
