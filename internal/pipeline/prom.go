package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	workflowsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crucible_workflows_started_total",
		Help: "Workflows accepted for processing.",
	})
	workflowsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crucible_workflows_completed_total",
		Help: "Workflows that finished all five phases.",
	})
	workflowsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crucible_workflows_failed_total",
		Help: "Workflows terminated by a phase failure.",
	})
)
