package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hexperiment/sircontrol/pkg/sir"
)

func testParams() sir.Parameters {
	return sir.Parameters{
		TransmissionRate: 0.3,
		RecoveryRate:     0.1,
		Population:       1000,
		InitialInfected:  10,
		Scenario:         sir.ScenarioNone,
		DurationDays:     365,
	}
}

func testSeries() []sir.Point {
	return []sir.Point{
		{Day: 0, Susceptible: 990, Infected: 10, Recovered: 0},
		{Day: 1, Susceptible: 987, Infected: 12, Recovered: 1},
	}
}

func TestCreateAndGetRun(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	created, err := store.CreateRun(ctx, testParams())
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if created.RunID == "" {
		t.Fatal("CreateRun returned an empty id")
	}
	if created.Status != RunStatusCreated {
		t.Errorf("expected status %q, got %q", RunStatusCreated, created.Status)
	}

	// Read-your-writes: get must return the record create reported.
	got, err := store.GetRun(ctx, created.RunID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.RunID != created.RunID {
		t.Errorf("expected id %s, got %s", created.RunID, got.RunID)
	}
	if got.Parameters != created.Parameters {
		t.Errorf("parameters round-trip mismatch: %+v vs %+v", got.Parameters, created.Parameters)
	}
	if got.Series != nil {
		t.Errorf("pending run should have no series, got %d points", len(got.Series))
	}
	if got.CompletedAt != nil {
		t.Errorf("pending run should have no completed_at")
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetRun(context.Background(), "no-such-run")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompleteRun(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run, err := store.CreateRun(ctx, testParams())
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	if err := store.CompleteRun(ctx, run.RunID, testSeries()); err != nil {
		t.Fatalf("CompleteRun failed: %v", err)
	}

	got, err := store.GetRun(ctx, run.RunID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != RunStatusCompleted {
		t.Errorf("expected status %q, got %q", RunStatusCompleted, got.Status)
	}
	if len(got.Series) != 2 {
		t.Fatalf("expected 2 series points, got %d", len(got.Series))
	}
	if got.Series[1] != testSeries()[1] {
		t.Errorf("series round-trip mismatch: %+v", got.Series[1])
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}

	// Completing twice is rejected, not silently accepted.
	err = store.CompleteRun(ctx, run.RunID, testSeries())
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second completion, got %v", err)
	}
}

func TestCompleteRunNotFound(t *testing.T) {
	store := setupTestStore(t)

	err := store.CompleteRun(context.Background(), "no-such-run", testSeries())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFailRun(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run, err := store.CreateRun(ctx, testParams())
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	if err := store.FailRun(ctx, run.RunID, "deadline exceeded"); err != nil {
		t.Fatalf("FailRun failed: %v", err)
	}

	got, err := store.GetRun(ctx, run.RunID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != RunStatusFailed {
		t.Errorf("expected status %q, got %q", RunStatusFailed, got.Status)
	}
	if got.Error != "deadline exceeded" {
		t.Errorf("expected failure cause to round-trip, got %q", got.Error)
	}

	// Failed is terminal too.
	if err := store.CompleteRun(ctx, run.RunID, testSeries()); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState after failure, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	listed, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected empty listing, got %d", len(listed))
	}

	first, err := store.CreateRun(ctx, testParams())
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	// created_at has second-level precision in SQLite comparisons; make
	// the ordering unambiguous.
	time.Sleep(1100 * time.Millisecond)
	second, err := store.CreateRun(ctx, testParams())
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if err := store.CompleteRun(ctx, second.RunID, testSeries()); err != nil {
		t.Fatalf("CompleteRun failed: %v", err)
	}

	listed, err = store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(listed))
	}
	if listed[0].RunID != second.RunID || listed[1].RunID != first.RunID {
		t.Errorf("expected newest first, got %s then %s", listed[0].RunID, listed[1].RunID)
	}
	if listed[0].Status != RunStatusCompleted {
		t.Errorf("expected completed status in summary, got %q", listed[0].Status)
	}
}

func TestListRunsCarriesFailureCause(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run, err := store.CreateRun(ctx, testParams())
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if err := store.FailRun(ctx, run.RunID, "integration aborted: context deadline exceeded"); err != nil {
		t.Fatalf("FailRun failed: %v", err)
	}

	listed, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(listed))
	}
	if listed[0].Status != RunStatusFailed {
		t.Errorf("expected failed status, got %q", listed[0].Status)
	}
	if listed[0].Error != "integration aborted: context deadline exceeded" {
		t.Errorf("summary should carry the failure cause, got %q", listed[0].Error)
	}
}
