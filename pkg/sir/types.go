package sir

import (
	"errors"
	"fmt"
)

// ErrInvalidParameter marks malformed or out-of-range simulation parameters.
// Callers match it with errors.Is.
var ErrInvalidParameter = errors.New("invalid parameter")

const (
	// DefaultDurationDays is used when a request omits the duration.
	DefaultDurationDays = 365

	// MaxDurationDays bounds a run at ten simulated years so the synchronous
	// call stays cheap.
	MaxDurationDays = 3650
)

// Parameters describe one SIR simulation run.
type Parameters struct {
	TransmissionRate float64  `json:"transmission_rate"`
	RecoveryRate     float64  `json:"recovery_rate"`
	Population       int      `json:"population"`
	InitialInfected  int      `json:"initial_infected"`
	Scenario         Scenario `json:"scenario"`
	DurationDays     int      `json:"duration_days"`
}

// Point is one sampled state of the compartments. Counts are rounded for
// reporting; the integrator keeps float64 state internally.
type Point struct {
	Day         int `json:"day"`
	Susceptible int `json:"susceptible"`
	Infected    int `json:"infected"`
	Recovered   int `json:"recovered"`
}

// WithDefaults returns a copy with the duration and scenario defaulted.
// An omitted scenario becomes ScenarioNone so the stored record always
// carries one of the three named tags.
func (p Parameters) WithDefaults() Parameters {
	if p.DurationDays == 0 {
		p.DurationDays = DefaultDurationDays
	}
	if p.Scenario == "" {
		p.Scenario = ScenarioNone
	}
	return p
}

// Validate rejects parameters the integrator must never see.
// All violations wrap ErrInvalidParameter.
func (p Parameters) Validate() error {
	if p.TransmissionRate <= 0 {
		return fmt.Errorf("%w: transmission_rate must be > 0, got %v", ErrInvalidParameter, p.TransmissionRate)
	}
	if p.RecoveryRate <= 0 {
		return fmt.Errorf("%w: recovery_rate must be > 0, got %v", ErrInvalidParameter, p.RecoveryRate)
	}
	if p.Population <= 0 {
		return fmt.Errorf("%w: population must be > 0, got %d", ErrInvalidParameter, p.Population)
	}
	if p.InitialInfected < 0 || p.InitialInfected > p.Population {
		return fmt.Errorf("%w: initial_infected must be within [0, population], got %d", ErrInvalidParameter, p.InitialInfected)
	}
	if _, err := ParseScenario(string(p.Scenario)); err != nil {
		return err
	}
	if p.DurationDays < 1 || p.DurationDays > MaxDurationDays {
		return fmt.Errorf("%w: duration_days must be within [1, %d], got %d", ErrInvalidParameter, MaxDurationDays, p.DurationDays)
	}
	return nil
}
