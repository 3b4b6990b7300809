package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hexperiment/sircontrol/pkg/sir"
	"github.com/hexperiment/sircontrol/pkg/store"
)

type stubRegistry struct {
	runs map[store.RunID]*store.Run
}

func (s *stubRegistry) GetRun(ctx context.Context, id store.RunID) (*store.Run, error) {
	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: run %s", store.ErrNotFound, id)
	}
	return run, nil
}

func (s *stubRegistry) ListRuns(ctx context.Context) ([]store.RunSummary, error) {
	summaries := make([]store.RunSummary, 0, len(s.runs))
	for _, run := range s.runs {
		summaries = append(summaries, run.Summary())
	}
	return summaries, nil
}

// stubRunner validates and integrates in-process without a database.
type stubRunner struct {
	lastParams sir.Parameters
}

func (r *stubRunner) Run(ctx context.Context, params sir.Parameters) (*store.Run, error) {
	params = params.WithDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	series, err := sir.Integrate(ctx, params)
	if err != nil {
		return nil, err
	}
	r.lastParams = params
	now := time.Now().UTC()
	return &store.Run{
		RunID:       "run-stub",
		Status:      store.RunStatusCompleted,
		Parameters:  params,
		Series:      series,
		CreatedAt:   now,
		CompletedAt: &now,
	}, nil
}

func newTestServer(t *testing.T) (*Server, *stubRegistry, *stubRunner) {
	t.Helper()
	registry := &stubRegistry{runs: make(map[store.RunID]*store.Run)}
	runner := &stubRunner{}
	return NewServer(registry, runner, ":0"), registry, runner
}

func postJSON(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(w, req)
	return w
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(w, req)
	return w
}

func TestCreateSimulation(t *testing.T) {
	s, _, runner := newTestServer(t)

	w := postJSON(t, s, "/simulations", RunRequest{
		TransmissionRate: 0.3,
		RecoveryRate:     0.1,
		Population:       1000,
		InitialInfected:  10,
		DurationDays:     100,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var run store.Run
	if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if run.Status != store.RunStatusCompleted {
		t.Errorf("expected completed status, got %s", run.Status)
	}
	if len(run.Series) != 101 {
		t.Errorf("expected 101 sampled points, got %d", len(run.Series))
	}
	for _, pt := range run.Series {
		total := pt.Susceptible + pt.Infected + pt.Recovered
		if total < 998 || total > 1002 {
			t.Fatalf("day %d: compartments sum to %d, want ~1000", pt.Day, total)
		}
	}
	if runner.lastParams.Scenario != sir.ScenarioNone {
		t.Errorf("empty scenario should default to none, got %q", runner.lastParams.Scenario)
	}
}

func TestCreateSimulationInvalidParameters(t *testing.T) {
	s, _, _ := newTestServer(t)

	cases := []struct {
		name string
		req  RunRequest
	}{
		{"negative_rate", RunRequest{TransmissionRate: -0.3, RecoveryRate: 0.1, Population: 1000, InitialInfected: 10}},
		{"zero_population", RunRequest{TransmissionRate: 0.3, RecoveryRate: 0.1, Population: 0, InitialInfected: 10}},
		{"infected_exceeds_population", RunRequest{TransmissionRate: 0.3, RecoveryRate: 0.1, Population: 100, InitialInfected: 200}},
		{"unknown_scenario", RunRequest{TransmissionRate: 0.3, RecoveryRate: 0.1, Population: 1000, InitialInfected: 10, Scenario: "quarantine"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(t, s, "/simulations", tc.req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), "invalid_parameters") {
				t.Errorf("expected invalid_parameters error, got %s", w.Body.String())
			}
		})
	}
}

func TestCreateSimulationMalformedBody(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/simulations", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetSimulation(t *testing.T) {
	s, registry, _ := newTestServer(t)
	now := time.Now().UTC()
	registry.runs["run-1"] = &store.Run{
		RunID:  "run-1",
		Status: store.RunStatusCompleted,
		Parameters: sir.Parameters{
			TransmissionRate: 0.3, RecoveryRate: 0.1,
			Population: 1000, InitialInfected: 10,
			Scenario: sir.ScenarioNone, DurationDays: 2,
		},
		Series: []sir.Point{
			{Day: 0, Susceptible: 990, Infected: 10, Recovered: 0},
			{Day: 1, Susceptible: 987, Infected: 12, Recovered: 1},
			{Day: 2, Susceptible: 984, Infected: 14, Recovered: 2},
		},
		CreatedAt:   now,
		CompletedAt: &now,
	}

	w := get(t, s, "/simulations/run-1")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var run store.Run
	if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if run.RunID != "run-1" {
		t.Errorf("expected run-1, got %s", run.RunID)
	}
	if len(run.Series) != 3 {
		t.Errorf("expected full series, got %d points", len(run.Series))
	}
}

func TestGetSimulationNotFound(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := get(t, s, "/simulations/missing")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not_found") {
		t.Errorf("expected not_found error, got %s", w.Body.String())
	}
}

func TestListSimulations(t *testing.T) {
	s, registry, _ := newTestServer(t)
	now := time.Now().UTC()
	registry.runs["run-1"] = &store.Run{
		RunID:  "run-1",
		Status: store.RunStatusCompleted,
		Parameters: sir.Parameters{
			TransmissionRate: 0.3, RecoveryRate: 0.1,
			Population: 1000, InitialInfected: 10,
			Scenario: sir.ScenarioLockdown, DurationDays: 365,
		},
		Series:      []sir.Point{{Day: 0, Susceptible: 990, Infected: 10}},
		CreatedAt:   now,
		CompletedAt: &now,
	}

	w := get(t, s, "/simulations")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var summaries []store.RunSummary
	if err := json.Unmarshal(w.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	if summaries[0].Parameters.Scenario != sir.ScenarioLockdown {
		t.Errorf("unexpected scenario: %s", summaries[0].Parameters.Scenario)
	}
	// Summaries must not carry the series payload.
	if strings.Contains(w.Body.String(), `"series"`) {
		t.Errorf("list response should not include series:\n%s", w.Body.String())
	}
}

func TestSimulationsMethodNotAllowed(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodDelete, "/simulations", nil)
	w := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := get(t, s, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("expected ok status, got %s", resp.Status)
	}
	if resp.Service != "sircontrol" {
		t.Errorf("unexpected service name: %s", resp.Service)
	}
	if resp.GoVersion == "" {
		t.Error("go_version should be populated")
	}
}

func TestSeriesReportEndpoint(t *testing.T) {
	s, registry, _ := newTestServer(t)
	now := time.Now().UTC()
	registry.runs["run-1"] = &store.Run{
		RunID:  "run-1",
		Status: store.RunStatusCompleted,
		Parameters: sir.Parameters{
			TransmissionRate: 0.3, RecoveryRate: 0.1,
			Population: 1000, InitialInfected: 10, DurationDays: 1,
		},
		Series: []sir.Point{
			{Day: 0, Susceptible: 990, Infected: 10, Recovered: 0},
			{Day: 1, Susceptible: 987, Infected: 12, Recovered: 1},
		},
		CreatedAt:   now,
		CompletedAt: &now,
	}

	w := get(t, s, "/reports?type=series&id=run-1")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected text/csv, got %s", ct)
	}
	if !strings.HasPrefix(w.Body.String(), "day,susceptible,infected,recovered\n") {
		t.Errorf("unexpected CSV output:\n%s", w.Body.String())
	}
}

func TestReportsUnknownType(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := get(t, s, "/reports?type=bogus")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSecureHeaders(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := get(t, s, "/health")
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("missing nosniff header, got %q", got)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("missing frame options header, got %q", got)
	}
	if w.Header().Get("X-Trace-ID") == "" {
		t.Error("expected a trace id header on every response")
	}
}
