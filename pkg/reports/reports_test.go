package reports

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/hexperiment/sircontrol/pkg/sir"
	"github.com/hexperiment/sircontrol/pkg/store"
)

type stubStore struct {
	run       *store.Run
	summaries []store.RunSummary
}

func (s *stubStore) GetRun(ctx context.Context, id store.RunID) (*store.Run, error) {
	if s.run == nil || s.run.RunID != id {
		return nil, store.ErrNotFound
	}
	return s.run, nil
}

func (s *stubStore) ListRuns(ctx context.Context) ([]store.RunSummary, error) {
	return s.summaries, nil
}

func fixtureRun() *store.Run {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &store.Run{
		RunID:  "run-1",
		Status: store.RunStatusCompleted,
		Parameters: sir.Parameters{
			TransmissionRate: 0.3,
			RecoveryRate:     0.1,
			Population:       1000,
			InitialInfected:  10,
			Scenario:         sir.ScenarioNone,
			DurationDays:     2,
		},
		Series: []sir.Point{
			{Day: 0, Susceptible: 990, Infected: 10, Recovered: 0},
			{Day: 1, Susceptible: 987, Infected: 12, Recovered: 1},
			{Day: 2, Susceptible: 984, Infected: 14, Recovered: 2},
		},
		CreatedAt:   now,
		CompletedAt: &now,
	}
}

func readAll(t *testing.T, r io.Reader) string {
	t.Helper()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	return string(data)
}

func TestSeriesReport(t *testing.T) {
	run := fixtureRun()
	gen, err := NewReportGenerator(ReportTypeSeries, &stubStore{run: run})
	if err != nil {
		t.Fatalf("NewReportGenerator failed: %v", err)
	}

	reader, err := gen.Generate(context.Background(), ReportParams{RunID: run.RunID})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(readAll(t, reader)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %d lines", len(lines))
	}
	if lines[0] != "day,susceptible,infected,recovered" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if lines[1] != "0,990,10,0" {
		t.Errorf("unexpected first row: %q", lines[1])
	}
}

func TestSeriesReportRequiresRunID(t *testing.T) {
	gen := NewSeriesReport(&stubStore{})
	if _, err := gen.Generate(context.Background(), ReportParams{}); err == nil {
		t.Fatal("expected an error without a run id")
	}
}

func TestRunsReport(t *testing.T) {
	run := fixtureRun()
	gen, err := NewReportGenerator(ReportTypeRuns, &stubStore{summaries: []store.RunSummary{run.Summary()}})
	if err != nil {
		t.Fatalf("NewReportGenerator failed: %v", err)
	}

	reader, err := gen.Generate(context.Background(), ReportParams{})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	out := readAll(t, reader)
	if !strings.Contains(out, "run-1,completed,none,0.3,0.1,1000,10,2,") {
		t.Errorf("run row missing or malformed:\n%s", out)
	}
}

func TestUnknownReportType(t *testing.T) {
	if _, err := NewReportGenerator("bogus", &stubStore{}); err == nil {
		t.Fatal("expected an error for an unknown report type")
	}
}
