package draft

import (
	"encoding/json"
	"fmt"

	"nicepods-server/creation-service/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	draftGenerationsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "creation_draft_generations_started_total",
		Help: "Total number of started draft generations.",
	})

	draftGenerationsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creation_draft_generations_finished_total",
			Help: "Total number of finished draft generations by outcome.",
		},
		[]string{"outcome"}, // success, error, timeout, stale
	)

	draftGenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "creation_draft_generation_duration_seconds",
		Help:    "Histogram of external draft generation durations.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 9), // 1s .. 256s
	})

	orphanDraftsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "creation_orphan_drafts_deleted_total",
		Help: "Total number of abandoned private drafts removed by the sweeper.",
	})
)

func marshalInputs(inputs models.DraftInputs) ([]byte, error) {
	raw, err := json.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal draft inputs: %w", err)
	}
	return raw, nil
}
