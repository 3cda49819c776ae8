package evaluate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cellsScored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crucible_cells_scored_total",
		Help: "Experiment cells that produced a usable score.",
	})
	cellsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crucible_cells_failed_total",
		Help: "Experiment cells excluded from scoring (missing or errored).",
	})
)
