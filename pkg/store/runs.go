package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hexperiment/sircontrol/pkg/sir"
)

// CreateRun allocates a fresh id and persists a pending record.
func (s *Store) CreateRun(ctx context.Context, params sir.Parameters) (*Run, error) {
	run := &Run{
		RunID:      RunID(uuid.NewString()),
		Status:     RunStatusCreated,
		Parameters: params,
		CreatedAt:  time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			run_id, status,
			transmission_rate, recovery_rate, population, initial_infected, scenario, duration_days,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.RunID, run.Status,
		params.TransmissionRate, params.RecoveryRate, params.Population,
		params.InitialInfected, string(params.Scenario), params.DurationDays,
		run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	return run, nil
}

// GetRun retrieves a run by id, including its series.
func (s *Store) GetRun(ctx context.Context, id RunID) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, status,
			transmission_rate, recovery_rate, population, initial_infected, scenario, duration_days,
			series, error, created_at, completed_at
		FROM runs WHERE run_id = ?
	`, id)

	var run Run
	var seriesJSON sql.NullString
	var cause sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(&run.RunID, &run.Status,
		&run.Parameters.TransmissionRate, &run.Parameters.RecoveryRate,
		&run.Parameters.Population, &run.Parameters.InitialInfected,
		&run.Parameters.Scenario, &run.Parameters.DurationDays,
		&seriesJSON, &cause, &run.CreatedAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	if seriesJSON.Valid && seriesJSON.String != "" {
		if err := json.Unmarshal([]byte(seriesJSON.String), &run.Series); err != nil {
			return nil, fmt.Errorf("failed to decode series for run %s: %w", id, err)
		}
	}
	if cause.Valid {
		run.Error = cause.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}

	return &run, nil
}

// ListRuns returns summaries of all runs, newest first. Series are omitted
// to keep listings small.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, status,
			transmission_rate, recovery_rate, population, initial_infected, scenario, duration_days,
			error, created_at, completed_at
		FROM runs ORDER BY created_at DESC, run_id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	summaries := []RunSummary{}
	for rows.Next() {
		var sum RunSummary
		var cause sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(&sum.RunID, &sum.Status,
			&sum.Parameters.TransmissionRate, &sum.Parameters.RecoveryRate,
			&sum.Parameters.Population, &sum.Parameters.InitialInfected,
			&sum.Parameters.Scenario, &sum.Parameters.DurationDays,
			&cause, &sum.CreatedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}
		if cause.Valid {
			sum.Error = cause.String
		}
		if completedAt.Valid {
			t := completedAt.Time
			sum.CompletedAt = &t
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return summaries, nil
}

// CompleteRun transitions a run from created to completed and attaches the
// series. The transition is a single conditional UPDATE so a record can
// never be completed twice.
func (s *Store) CompleteRun(ctx context.Context, id RunID, series []sir.Point) error {
	data, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("failed to encode series: %w", err)
	}

	return s.transition(ctx, id, `
		UPDATE runs
		SET status = ?, series = ?, completed_at = ?
		WHERE run_id = ? AND status = ?
	`, RunStatusCompleted, string(data), time.Now().UTC(), id, RunStatusCreated)
}

// FailRun transitions a run from created to failed, recording the cause.
func (s *Store) FailRun(ctx context.Context, id RunID, cause string) error {
	return s.transition(ctx, id, `
		UPDATE runs
		SET status = ?, error = ?, completed_at = ?
		WHERE run_id = ? AND status = ?
	`, RunStatusFailed, cause, time.Now().UTC(), id, RunStatusCreated)
}

// transition runs a conditional terminal-state UPDATE and maps a zero row
// count to ErrNotFound or ErrInvalidState.
func (s *Store) transition(ctx context.Context, id RunID, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	// Distinguish an unknown id from a run already in a terminal state.
	var status RunStatus
	err = s.db.QueryRowContext(ctx, `SELECT status FROM runs WHERE run_id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to inspect run state: %w", err)
	}
	return fmt.Errorf("%w: run %s is %s", ErrInvalidState, id, status)
}
