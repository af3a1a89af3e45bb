package allocation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	claimAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coupond_claim_attempts_total",
		Help: "Read-modify-write attempts against the inventory document.",
	})

	claimConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coupond_claim_conflicts_total",
		Help: "Conditioned writes rejected because a concurrent claimant committed first.",
	})

	claimOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coupond_claim_outcomes_total",
		Help: "Terminal claim outcomes by kind.",
	}, []string{"outcome"})
)

func recordOutcome(outcome string) {
	claimOutcomes.WithLabelValues(outcome).Inc()
}
