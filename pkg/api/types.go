package api

import "github.com/hexperiment/sircontrol/pkg/sir"

// RunRequest is the POST /simulations payload.
type RunRequest struct {
	TransmissionRate float64 `json:"transmission_rate"`
	RecoveryRate     float64 `json:"recovery_rate"`
	Population       int     `json:"population"`
	InitialInfected  int     `json:"initial_infected"`
	Scenario         string  `json:"scenario,omitempty"`
	DurationDays     int     `json:"duration_days,omitempty"`
}

// Parameters converts the wire payload to domain parameters. Validation
// happens in the orchestrator, not here.
func (r RunRequest) Parameters() sir.Parameters {
	return sir.Parameters{
		TransmissionRate: r.TransmissionRate,
		RecoveryRate:     r.RecoveryRate,
		Population:       r.Population,
		InitialInfected:  r.InitialInfected,
		Scenario:         sir.Scenario(r.Scenario),
		DurationDays:     r.DurationDays,
	}
}

// HealthResponse is the GET /health payload.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
	GoVersion string `json:"go_version"`
}
