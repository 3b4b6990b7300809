package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/hexperiment/sircontrol/pkg/sir"
	"github.com/hexperiment/sircontrol/pkg/store"
)

// DefaultRunTimeout bounds a single synchronous run. Even a ten-year run is
// milliseconds of arithmetic; the deadline exists so the request path can
// never hang on a pathological store.
const DefaultRunTimeout = 30 * time.Second

// RunStore is the registry surface the orchestrator needs. *store.Store
// satisfies it; tests may substitute their own.
type RunStore interface {
	CreateRun(ctx context.Context, params sir.Parameters) (*store.Run, error)
	GetRun(ctx context.Context, id store.RunID) (*store.Run, error)
	CompleteRun(ctx context.Context, id store.RunID, series []sir.Point) error
	FailRun(ctx context.Context, id store.RunID, cause string) error
}

// SummarySink receives completed-run summaries (e.g. the Redis mirror).
// Delivery is best-effort; implementations must not block meaningfully.
type SummarySink interface {
	Set(summary store.RunSummary)
}

// Runner validates parameters, drives the integrator, and settles the
// registry record. One Runner serves all requests; it holds no per-run
// state, so concurrent Run calls need no coordination beyond the store's.
type Runner struct {
	store   RunStore
	timeout time.Duration
	sink    SummarySink
}

// NewRunner creates a run orchestrator backed by the given registry.
func NewRunner(st RunStore) *Runner {
	return &Runner{
		store:   st,
		timeout: DefaultRunTimeout,
	}
}

// SetTimeout overrides the per-run deadline.
func (r *Runner) SetTimeout(d time.Duration) {
	if d > 0 {
		r.timeout = d
	}
}

// SetSummarySink attaches a mirror for completed-run summaries.
func (r *Runner) SetSummarySink(sink SummarySink) {
	r.sink = sink
}

// Run executes one simulation synchronously: validate, create the registry
// record, integrate to completion, settle the record, and return it.
// Validation and storage errors propagate to the caller unmodified; there
// are no retries and nothing is fire-and-forget.
func (r *Runner) Run(ctx context.Context, params sir.Parameters) (*store.Run, error) {
	params = params.WithDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	run, err := r.store.CreateRun(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	series, err := sir.Integrate(runCtx, params)
	if err != nil {
		// Integration only fails when the deadline expires. The record
		// still has to reach a terminal state.
		if failErr := r.store.FailRun(ctx, run.RunID, err.Error()); failErr != nil {
			return nil, fmt.Errorf("failed to mark run failed: %w", failErr)
		}
		RunsTotal.WithLabelValues(string(params.Scenario), string(store.RunStatusFailed)).Inc()
		return nil, fmt.Errorf("integration aborted: %w", err)
	}

	if err := r.store.CompleteRun(ctx, run.RunID, series); err != nil {
		return nil, fmt.Errorf("failed to complete run: %w", err)
	}

	RunsTotal.WithLabelValues(string(params.Scenario), string(store.RunStatusCompleted)).Inc()
	StepsTotal.Add(float64(params.DurationDays * 10))
	PeakInfected.WithLabelValues(string(params.Scenario)).Set(float64(peakInfected(series)))

	// Read the settled record back so callers see exactly what the
	// registry owns.
	completed, err := r.store.GetRun(ctx, run.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to read back run: %w", err)
	}

	if r.sink != nil {
		r.sink.Set(completed.Summary())
	}

	return completed, nil
}

func peakInfected(series []sir.Point) int {
	peak := 0
	for _, pt := range series {
		if pt.Infected > peak {
			peak = pt.Infected
		}
	}
	return peak
}
