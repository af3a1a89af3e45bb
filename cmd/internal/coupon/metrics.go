package coupon

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requestOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "coupond_generate_requests_total",
	Help: "Coupon generation requests by mode and outcome.",
}, []string{"mode", "outcome"})
