package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pipesight/pipesight/pkg/types"
)

// defaultTimeout bounds every API call unless the caller's context is
// tighter
const defaultTimeout = 10 * time.Second

// Client wraps the Pipesight HTTP API for CLI and worker usage
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client against a server base URL such as
// http://127.0.0.1:8090
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// SubmitEvent posts one lifecycle event to the remote ingestion boundary.
// A nil error only acknowledges receipt: the server queues fire-and-forget.
func (c *Client) SubmitEvent(ctx context.Context, event *types.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/events", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to submit event: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("server rejected event: %s", resp.Status)
	}
	return nil
}

// ListPipelines returns every pipeline id known to the durable log
func (c *Client) ListPipelines(ctx context.Context) ([]string, error) {
	var out struct {
		PipelineIDs []string `json:"pipeline_ids"`
	}
	if err := c.get(ctx, "/api/pipelines", &out); err != nil {
		return nil, err
	}
	return out.PipelineIDs, nil
}

// GetPipeline returns the live folded view of one run
func (c *Client) GetPipeline(ctx context.Context, pipelineID string) (*types.PipelineRun, error) {
	var run types.PipelineRun
	if err := c.get(ctx, "/api/pipelines/"+pipelineID, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetEvents replays the full event sequence of one pipeline
func (c *Client) GetEvents(ctx context.Context, pipelineID string) ([]*types.Event, error) {
	var out struct {
		Events []*types.Event `json:"events"`
	}
	if err := c.get(ctx, "/api/pipelines/"+pipelineID+"/events", &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

// GetStats fetches the current stats report
func (c *Client) GetStats(ctx context.Context) (*types.StatsReport, error) {
	var report types.StatsReport
	if err := c.get(ctx, "/api/stats", &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s for %s", resp.Status, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// drain empties the body so the connection can be reused
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
