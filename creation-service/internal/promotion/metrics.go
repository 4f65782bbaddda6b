package promotion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	promotionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creation_promotions_total",
			Help: "Total number of promotion attempts by kind and outcome.",
		},
		[]string{"kind", "outcome"}, // kind: collection, draft
	)

	compensationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creation_promotion_compensations_total",
			Help: "Total number of compensating deletes by status.",
		},
		[]string{"status"}, // attempted, failed
	)
)
