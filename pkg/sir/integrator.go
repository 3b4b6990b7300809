package sir

import (
	"context"
	"math"
)

// Integration policy. dt is one tenth of a day and the series is sampled once
// per simulated day (every stepsPerSample steps). Fixed rather than
// configurable so identical parameters always produce identical series.
const (
	dt             = 0.1
	stepsPerSample = 10
)

// Integrate advances the closed-population SIR system with forward Euler and
// returns the sampled series, starting with the day-0 state. Parameters must
// already be validated; Integrate itself cannot fail numerically once they
// are. The context is checked once per sampled day so a deadline can abort a
// long run.
func Integrate(ctx context.Context, p Parameters) ([]Point, error) {
	n := float64(p.Population)
	s := float64(p.Population - p.InitialInfected)
	i := float64(p.InitialInfected)
	r := 0.0

	series := make([]Point, 0, p.DurationDays+1)
	series = append(series, sample(0, s, i, r))

	steps := p.DurationDays * stepsPerSample
	for step := 1; step <= steps; step++ {
		// Day at the start of the step; the intervention window is
		// evaluated against the state being advanced.
		t := float64(step-1) * dt
		beta := p.Scenario.EffectiveRate(p.TransmissionRate, t)

		// Simultaneous update: all derivatives are taken at the previous
		// full state.
		newInfections := beta * s * i / n
		recoveries := p.RecoveryRate * i

		s += -newInfections * dt
		i += (newInfections - recoveries) * dt
		r += recoveries * dt

		if step%stepsPerSample == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			series = append(series, sample(step/stepsPerSample, s, i, r))
		}
	}

	return series, nil
}

func sample(day int, s, i, r float64) Point {
	return Point{
		Day:         day,
		Susceptible: int(math.Round(s)),
		Infected:    int(math.Round(i)),
		Recovered:   int(math.Round(r)),
	}
}
