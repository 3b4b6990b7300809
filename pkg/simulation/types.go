package simulation

import (
	"github.com/hexperiment/sircontrol/pkg/client"
)

// BatchResult captures the final state of a batch for reporting
type BatchResult struct {
	BatchName      string               `json:"batch_name"`
	TotalSubmitted uint64               `json:"total_submitted"`
	TotalCompleted uint64               `json:"total_completed"`
	TotalErrors    uint64               `json:"total_errors"`
	JobStats       map[string]*JobStats `json:"job_stats"`
	Invariants     []InvariantResult    `json:"invariants"`
	Success        bool                 `json:"success"`
}

// JobStats aggregates outcomes across one job's submitted runs.
type JobStats struct {
	Submitted uint64 `json:"submitted"`
	Completed uint64 `json:"completed"`
	Errors    uint64 `json:"errors"`

	// Epidemic aggregates over completed runs.
	PeakInfected      int `json:"peak_infected"`
	PeakDay           int `json:"peak_day"`
	FinalInfected     int `json:"final_infected"`
	ConservationDrift int `json:"conservation_drift"`
}

type InvariantResult struct {
	Metric   string `json:"metric"`
	Scope    string `json:"scope"`
	Expected string `json:"expected"` // e.g. "< 0.05"
	Actual   string `json:"actual"`   // e.g. "0.0000"
	Passed   bool   `json:"passed"`
}

// Batch is a declarative scenario file: jobs to submit concurrently plus
// invariants to evaluate over their results.
type Batch struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Workers     int         `json:"workers"` // concurrent submitters (default 4)
	Jobs        []JobConfig `json:"jobs"`
	Invariants  []Invariant `json:"invariants,omitempty"`
}

// JobConfig submits one parameter set Count times.
type JobConfig struct {
	Name       string               `json:"name"`
	Count      int                  `json:"count"`
	Parameters client.RunParameters `json:"parameters"`
}

// Invariant is a condition over batch metrics.
//
// Metrics: "error_rate" (errors/submitted), "peak_infected" (max over a
// job's runs), "final_infected" (max), "conservation_drift" (max absolute
// drift from the initial population), and "peak_ratio" (one job's peak over
// another's, scope "variant/baseline", so suppression reads as peak_ratio < 1).
// Scope is "global" or a job name; the epidemic metrics require a job scope.
type Invariant struct {
	Metric    string  `json:"metric"`
	Condition string  `json:"condition"` // ">", "<", ">=", "<=", "=="
	Value     float64 `json:"value"`
	Scope     string  `json:"scope"`
}
