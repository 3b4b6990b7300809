package reports

import (
	"context"
	"io"

	"github.com/hexperiment/sircontrol/pkg/store"
)

type ReportType string

const (
	// ReportTypeSeries exports one run's sampled series.
	ReportTypeSeries ReportType = "series"
	// ReportTypeRuns exports the run catalog.
	ReportTypeRuns ReportType = "runs"
)

type ReportParams struct {
	// RunID selects the run for per-run reports.
	RunID store.RunID
}

// ReportStore defines the interface for data access required by reports.
type ReportStore interface {
	GetRun(ctx context.Context, id store.RunID) (*store.Run, error)
	ListRuns(ctx context.Context) ([]store.RunSummary, error)
}

type Generator interface {
	Generate(ctx context.Context, params ReportParams) (io.Reader, error)
}
