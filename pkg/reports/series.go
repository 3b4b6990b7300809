package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
)

// SeriesReport exports one run's sampled compartment series as CSV.
type SeriesReport struct {
	store ReportStore
}

// NewSeriesReport creates a new SeriesReport generator.
func NewSeriesReport(s ReportStore) *SeriesReport {
	return &SeriesReport{store: s}
}

// Generate writes one row per sampled day for the run named in params.
func (r *SeriesReport) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	if params.RunID == "" {
		return nil, fmt.Errorf("series report requires a run id")
	}

	run, err := r.store.GetRun(ctx, params.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	headers := []string{"day", "susceptible", "infected", "recovered"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}

	for _, pt := range run.Series {
		row := []string{
			fmt.Sprintf("%d", pt.Day),
			fmt.Sprintf("%d", pt.Susceptible),
			fmt.Sprintf("%d", pt.Infected),
			fmt.Sprintf("%d", pt.Recovered),
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
