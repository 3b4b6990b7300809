package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hexperiment/sircontrol/pkg/client"
)

// Server adapts sircontrol-d to the Model Context Protocol.
type Server struct {
	mcpServer *server.MCPServer
	apiClient *client.Client
}

// NewServer creates a new MCP server instance.
func NewServer(apiURL string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"sircontrol",
			"1.0.0",
		),
		apiClient: client.NewClient(apiURL),
	}
	s.registerResources()
	s.registerTools()
	s.registerPrompts()
	return s
}

// Serve starts the MCP server on stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// --- Resources ---

func (s *Server) registerResources() {
	// sircontrol://runs
	s.mcpServer.AddResource(mcp.NewResource(
		"sircontrol://runs",
		"Simulation Run Registry",
		mcp.WithResourceDescription("Summaries of all registered simulation runs, newest first"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadRuns)
}

// --- Tools ---

func (s *Server) registerTools() {
	// run_simulation
	s.mcpServer.AddTool(mcp.NewTool(
		"run_simulation",
		mcp.WithDescription("Run an SIR epidemic simulation to completion and return its summary."),
		mcp.WithNumber("transmission_rate", mcp.Required(), mcp.Description("Infection rate beta (e.g. 0.3)")),
		mcp.WithNumber("recovery_rate", mcp.Required(), mcp.Description("Recovery rate gamma (e.g. 0.1)")),
		mcp.WithNumber("population", mcp.Required(), mcp.Description("Total population size")),
		mcp.WithNumber("initial_infected", mcp.Required(), mcp.Description("Initially infected individuals")),
		mcp.WithString("scenario", mcp.Description("Intervention scenario: none, lockdown, or vaccination (default none)")),
		mcp.WithNumber("duration_days", mcp.Description("Simulated days (default 365)")),
	), s.handleRunSimulation)

	// get_simulation
	s.mcpServer.AddTool(mcp.NewTool(
		"get_simulation",
		mcp.WithDescription("Fetch a completed simulation run by id, including its daily series."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("The run identifier")),
	), s.handleGetSimulation)
}

// --- Prompts ---

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(mcp.NewPrompt(
		"sircontrol-aware",
		mcp.WithPromptDescription("Provides context about sircontrol concepts (SIR model, scenarios, runs)"),
	), s.handleGetPrompt)
}

// --- Handlers ---

func (s *Server) handleReadRuns(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	summaries, err := s.apiClient.ListSimulations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch runs: %w", err)
	}

	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal runs: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleRunSimulation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := client.RunParameters{
		TransmissionRate: mcp.ParseFloat64(request, "transmission_rate", 0),
		RecoveryRate:     mcp.ParseFloat64(request, "recovery_rate", 0),
		Population:       int(mcp.ParseFloat64(request, "population", 0)),
		InitialInfected:  int(mcp.ParseFloat64(request, "initial_infected", 0)),
		Scenario:         mcp.ParseString(request, "scenario", ""),
		DurationDays:     int(mcp.ParseFloat64(request, "duration_days", 0)),
	}

	run, err := s.apiClient.RunSimulation(ctx, params)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}

	resultMsg := formatRunSummary(run)
	return mcp.NewToolResultText(resultMsg), nil
}

func (s *Server) handleGetSimulation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID := mcp.ParseString(request, "run_id", "")
	if runID == "" {
		return mcp.NewToolResultError("run_id is required"), nil
	}

	run, err := s.apiClient.GetSimulation(ctx, runID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal run: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleGetPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := request.Params.Name
	if name != "sircontrol-aware" {
		return nil, fmt.Errorf("prompt not found: %s", name)
	}

	promptText := `You are interacting with sircontrol, an SIR epidemic simulation engine.

Concepts:
- Run: One simulation executed to completion, stored with its daily series.
- Parameters: transmission_rate (beta), recovery_rate (gamma), population, initial_infected, duration_days.
- Scenario: An intervention policy. 'none' runs the base model; 'lockdown' cuts
  transmission between days 50 and 150; 'vaccination' reduces it from day 100 on.
- Series: Daily sampled compartment counts (susceptible, infected, recovered).

Use 'run_simulation' to execute a new run. Use 'get_simulation' to fetch a past
run's full series. The 'sircontrol://runs' resource lists all registered runs.
`

	return mcp.NewGetPromptResult(
		"sircontrol-aware",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(promptText)),
		},
	), nil
}

// formatRunSummary renders a run as a compact text block for tool output.
func formatRunSummary(run *client.Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s\nStatus: %s\n", run.RunID, run.Status)
	scenario := run.Parameters.Scenario
	if scenario == "" {
		scenario = "none"
	}
	fmt.Fprintf(&b, "Scenario: %s\nDuration: %d days\n", scenario, run.Parameters.DurationDays)
	if len(run.Series) > 0 {
		peak := run.Series[0]
		for _, pt := range run.Series {
			if pt.Infected > peak.Infected {
				peak = pt
			}
		}
		final := run.Series[len(run.Series)-1]
		fmt.Fprintf(&b, "Peak infected: %d on day %d\n", peak.Infected, peak.Day)
		fmt.Fprintf(&b, "Final state: S=%d I=%d R=%d\n", final.Susceptible, final.Infected, final.Recovered)
	}
	return b.String()
}
