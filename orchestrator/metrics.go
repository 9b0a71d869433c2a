package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	matchesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "validator_matches_started_total",
		Help: "Matches the orchestrator has started.",
	})

	matchesCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "validator_matches_completed_total",
		Help: "Completed matches by end reason.",
	}, []string{"reason"})

	selectionShortfalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "validator_selection_shortfalls_total",
		Help: "Match attempts aborted because too few eligible participants were found.",
	})

	scoresPushed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "validator_scores_pushed_total",
		Help: "Game results pushed to the score backend.",
	})

	mirrorRowsPulled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "validator_mirror_rows_pulled_total",
		Help: "Rows pulled from the global results feed.",
	})
)
