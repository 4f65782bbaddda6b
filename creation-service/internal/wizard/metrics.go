package wizard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creation_wizard_transitions_total",
			Help: "Total number of wizard transitions by kind.",
		},
		[]string{"kind"}, // intent, advance, back, jump
	)

	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creation_wizard_generations_total",
			Help: "Wizard-triggered generations by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	sessionSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creation_wizard_session_saves_total",
			Help: "Wizard session saves by mode.",
		},
		[]string{"mode"}, // immediate, debounced, error
	)

	resumesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creation_wizard_recoveries_total",
			Help: "Recovery decisions by outcome.",
		},
		[]string{"outcome"},
	)

	activeWizards = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "creation_wizard_active",
			Help: "Number of wizards held in memory.",
		},
	)
)
