package sir

import "fmt"

// Scenario selects a time-windowed modifier applied to the transmission rate.
// It is a closed set: unknown strings are rejected rather than silently
// falling back to the baseline.
type Scenario string

const (
	ScenarioNone        Scenario = "none"
	ScenarioLockdown    Scenario = "lockdown"
	ScenarioVaccination Scenario = "vaccination"
)

// Intervention windows and factors. These are fixed policy constants; runs are
// only comparable across deployments because they never change.
const (
	lockdownStartDay  = 50.0
	lockdownEndDay    = 150.0
	lockdownFactor    = 0.3
	vaccinationDay    = 100.0
	vaccinationFactor = 0.7
)

// ParseScenario validates a scenario tag. The empty string means an omitted
// field and maps to ScenarioNone.
func ParseScenario(s string) (Scenario, error) {
	switch Scenario(s) {
	case "":
		return ScenarioNone, nil
	case ScenarioNone, ScenarioLockdown, ScenarioVaccination:
		return Scenario(s), nil
	default:
		return "", fmt.Errorf("%w: unknown scenario %q", ErrInvalidParameter, s)
	}
}

// EffectiveRate returns the transmission rate in force at simulated day t.
func (s Scenario) EffectiveRate(beta, t float64) float64 {
	switch s {
	case ScenarioLockdown:
		if t >= lockdownStartDay && t < lockdownEndDay {
			return beta * lockdownFactor
		}
	case ScenarioVaccination:
		if t >= vaccinationDay {
			return beta * vaccinationFactor
		}
	}
	return beta
}
