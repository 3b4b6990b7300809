package client

import "time"

// RunParameters is the POST /simulations payload.
type RunParameters struct {
	TransmissionRate float64 `json:"transmission_rate"`
	RecoveryRate     float64 `json:"recovery_rate"`
	Population       int     `json:"population"`
	InitialInfected  int     `json:"initial_infected"`
	Scenario         string  `json:"scenario,omitempty"`
	DurationDays     int     `json:"duration_days,omitempty"`
}

// Point is one sampled day of a run's series.
type Point struct {
	Day         int `json:"day"`
	Susceptible int `json:"susceptible"`
	Infected    int `json:"infected"`
	Recovered   int `json:"recovered"`
}

// Run is a full simulation record, series included.
type Run struct {
	RunID       string        `json:"run_id"`
	Status      string        `json:"status"`
	Parameters  RunParameters `json:"parameters"`
	Series      []Point       `json:"series,omitempty"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// RunSummary is a run without its series.
type RunSummary struct {
	RunID       string        `json:"run_id"`
	Status      string        `json:"status"`
	Parameters  RunParameters `json:"parameters"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// Status is the GET /health payload.
type Status struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
	GoVersion string `json:"go_version"`
}
