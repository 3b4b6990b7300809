package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

// RunsReport exports the run catalog (parameters and status, no series).
type RunsReport struct {
	store ReportStore
}

// NewRunsReport creates a new RunsReport generator.
func NewRunsReport(s ReportStore) *RunsReport {
	return &RunsReport{store: s}
}

// Generate writes one row per registered run, newest first.
func (r *RunsReport) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	summaries, err := r.store.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	headers := []string{
		"run_id", "status", "scenario",
		"transmission_rate", "recovery_rate", "population", "initial_infected", "duration_days",
		"created_at", "completed_at",
	}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}

	for _, sum := range summaries {
		completedAt := ""
		if sum.CompletedAt != nil {
			completedAt = sum.CompletedAt.Format(time.RFC3339)
		}
		row := []string{
			string(sum.RunID),
			string(sum.Status),
			string(sum.Parameters.Scenario),
			fmt.Sprintf("%g", sum.Parameters.TransmissionRate),
			fmt.Sprintf("%g", sum.Parameters.RecoveryRate),
			fmt.Sprintf("%d", sum.Parameters.Population),
			fmt.Sprintf("%d", sum.Parameters.InitialInfected),
			fmt.Sprintf("%d", sum.Parameters.DurationDays),
			sum.CreatedAt.Format(time.RFC3339),
			completedAt,
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush writer: %w", err)
	}

	return buf, nil
}
