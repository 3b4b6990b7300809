package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotFound reports that the daemon has no run with the given id.
var ErrNotFound = errors.New("run not found")

// ErrInvalidParameters reports that the daemon rejected the run parameters.
var ErrInvalidParameters = errors.New("invalid parameters")

// Client is the sircontrol SDK client.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a new sircontrol client.
// endpoint defaults to "http://127.0.0.1:8110" if empty.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = "http://127.0.0.1:8110"
	}
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: 120 * time.Second, // a long run completes inside one request
		},
	}
}

// RunSimulation submits parameters and waits for the completed run.
func (c *Client) RunSimulation(ctx context.Context, params RunParameters) (*Run, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal parameters: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint+"/simulations", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %s", ErrInvalidParameters, readErrorDetails(resp.Body))
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var run Run
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		return nil, fmt.Errorf("failed to decode run: %w", err)
	}
	return &run, nil
}

// GetSimulation fetches one run by id, series included.
func (c *Client) GetSimulation(ctx context.Context, id string) (*Run, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.endpoint+"/simulations/"+id, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var run Run
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		return nil, fmt.Errorf("failed to decode run: %w", err)
	}
	return &run, nil
}

// ListSimulations fetches summaries of all registered runs, newest first.
func (c *Client) ListSimulations(ctx context.Context) ([]RunSummary, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.endpoint+"/simulations", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var summaries []RunSummary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		return nil, fmt.Errorf("failed to decode summaries: %w", err)
	}
	return summaries, nil
}

// Ping checks the health of the daemon.
func (c *Client) Ping(ctx context.Context) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.endpoint+"/health", nil)
	if err != nil {
		return Status{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Status{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Status{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return Status{}, err
	}
	return status, nil
}

// readErrorDetails pulls the details field out of an error payload.
func readErrorDetails(r io.Reader) string {
	var payload struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return "malformed error response"
	}
	if payload.Details != "" {
		return payload.Details
	}
	return payload.Error
}
