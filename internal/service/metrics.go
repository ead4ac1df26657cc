package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	assessmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actionrunner_assessments_total",
		Help: "Plan assessments by approval outcome.",
	}, []string{"requires_approval"})

	runsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actionrunner_runs_rejected_total",
		Help: "Run requests rejected before a record was created.",
	}, []string{"reason"})

	runsStartedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actionrunner_runs_started_total",
		Help: "Runs created, by entry point.",
	}, []string{"mode"})

	runsFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actionrunner_runs_finished_total",
		Help: "Runs that reached a terminal status.",
	}, []string{"status"})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "actionrunner_run_duration_seconds",
		Help:    "Wall time from browser launch to terminal status.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"status"})

	stepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actionrunner_steps_total",
		Help: "Executed steps by action type and outcome.",
	}, []string{"type", "status"})

	stepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "actionrunner_step_duration_seconds",
		Help:    "Duration of a single step.",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	plannerFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "actionrunner_planner_fallbacks_total",
		Help: "Planner requests answered with the fallback plan.",
	})
)
