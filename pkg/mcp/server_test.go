package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestMCPServer_ReadRuns(t *testing.T) {
	// 1. Mock API Server
	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/simulations" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"run_id": "run-1", "status": "completed"}]`))
			return
		}
		http.NotFound(w, r)
	})
	ts := httptest.NewServer(apiHandler)
	defer ts.Close()

	// 2. Create MCP Server
	s := NewServer(ts.URL)

	// 3. Test Handler directly
	req := mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: "sircontrol://runs",
		},
	}

	result, err := s.handleReadRuns(context.Background(), req)
	if err != nil {
		t.Fatalf("handleReadRuns failed: %v", err)
	}

	if len(result) != 1 {
		t.Fatalf("Expected 1 resource content, got %d", len(result))
	}

	content, ok := result[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("Expected TextResourceContents")
	}

	if content.MIMEType != "application/json" {
		t.Errorf("Expected application/json, got %s", content.MIMEType)
	}

	var summaries []map[string]interface{}
	if err := json.Unmarshal([]byte(content.Text), &summaries); err != nil {
		t.Errorf("Failed to parse result JSON: %v", err)
	}
	if len(summaries) != 1 {
		t.Errorf("Expected 1 run summary")
	}
}

func TestMCPServer_RunSimulation(t *testing.T) {
	// 1. Mock API Server
	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/simulations" && r.Method == http.MethodPost {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{
				"run_id": "run-1",
				"status": "completed",
				"parameters": {"transmission_rate": 0.3, "recovery_rate": 0.1, "population": 1000, "initial_infected": 10, "duration_days": 365},
				"series": [
					{"day": 0, "susceptible": 990, "infected": 10, "recovered": 0},
					{"day": 1, "susceptible": 987, "infected": 12, "recovered": 1}
				]
			}`))
			return
		}
		http.NotFound(w, r)
	})
	ts := httptest.NewServer(apiHandler)
	defer ts.Close()

	// 2. Create MCP Server
	s := NewServer(ts.URL)

	// 3. Test Handler directly
	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name: "run_simulation",
			Arguments: map[string]interface{}{
				"transmission_rate": 0.3,
				"recovery_rate":     0.1,
				"population":        1000,
				"initial_infected":  10,
			},
		},
	}

	result, err := s.handleRunSimulation(context.Background(), req)
	if err != nil {
		t.Fatalf("handleRunSimulation failed: %v", err)
	}

	if result.IsError {
		t.Errorf("Expected success, got error")
	}

	if len(result.Content) == 0 {
		t.Fatalf("Expected content in result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Expected TextContent")
	}
	if !strings.Contains(text.Text, "run-1") {
		t.Errorf("Expected run id in summary, got:\n%s", text.Text)
	}
	if !strings.Contains(text.Text, "Peak infected: 12") {
		t.Errorf("Expected peak in summary, got:\n%s", text.Text)
	}
}

func TestMCPServer_GetSimulationMissingID(t *testing.T) {
	s := NewServer("http://127.0.0.1:1")

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "get_simulation",
			Arguments: map[string]interface{}{},
		},
	}

	result, err := s.handleGetSimulation(context.Background(), req)
	if err != nil {
		t.Fatalf("handleGetSimulation failed: %v", err)
	}
	if !result.IsError {
		t.Error("Expected error result without a run_id")
	}
}
