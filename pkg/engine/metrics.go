package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RunsTotal counts finished orchestrations by scenario and outcome
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sircontrol_runs_total",
			Help: "Total number of simulation runs by scenario and terminal status",
		},
		[]string{"scenario", "status"},
	)

	// StepsTotal counts integration steps across all runs
	StepsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sircontrol_run_steps_total",
			Help: "Total number of Euler integration steps executed",
		},
	)

	// PeakInfected tracks the peak infected count of the most recent run per scenario
	PeakInfected = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sircontrol_peak_infected",
			Help: "Peak infected count of the most recently completed run",
		},
		[]string{"scenario"},
	)
)

func init() {
	// Register metrics with the default registry
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(StepsTotal)
	prometheus.MustRegister(PeakInfected)
}
