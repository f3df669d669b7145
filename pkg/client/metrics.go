package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/entrhq/shopeeweb/pkg/types"
)

var (
	metricTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shopeeweb",
		Name:      "lifecycle_transitions_total",
		Help:      "Lifecycle transitions by destination state.",
	}, []string{"state"})
	metricQRRotations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shopeeweb",
		Name:      "qr_rotations_total",
		Help:      "QR challenge payloads observed on the login page.",
	})
	metricOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shopeeweb",
		Name:      "initialize_outcomes_total",
		Help:      "Initialize results by outcome.",
	}, []string{"outcome"})
	metricBrowsersOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "shopeeweb",
		Name:      "browsers_open",
		Help:      "Browsers currently held by clients.",
	})
)

func recordTransition(state types.LifecycleState) {
	metricTransitions.WithLabelValues(string(state)).Inc()
}

func recordQRRotation() {
	metricQRRotations.Inc()
}

func recordOutcome(label string) {
	metricOutcomes.WithLabelValues(label).Inc()
}

func recordBrowserAcquired() {
	metricBrowsersOpen.Inc()
}

func recordBrowserReleased() {
	metricBrowsersOpen.Dec()
}
