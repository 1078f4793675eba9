// Package project is the HTTP client for the planner service that owns
// projects, tasks and phases.
package project

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Search returns projects whose name contains the fragment, ordered by
// relevance as the planner sees fit.
func (c *Client) Search(ctx context.Context, nameFragment string) ([]Project, error) {
	endpoint := fmt.Sprintf("%s/api/projects?search=%s", c.baseURL, url.QueryEscape(nameFragment))
	var projects []Project
	if err := c.get(ctx, endpoint, &projects); err != nil {
		return nil, fmt.Errorf("searching projects: %w", err)
	}
	return projects, nil
}

func (c *Client) CreateTask(ctx context.Context, projectID string, fields TaskFields, actorID string) (*Task, error) {
	endpoint := fmt.Sprintf("%s/api/projects/%s/tasks", c.baseURL, projectID)
	payload := struct {
		TaskFields
		ActorID string `json:"actor_id,omitempty"`
	}{fields, actorID}

	var task Task
	if err := c.post(ctx, endpoint, payload, &task); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	return &task, nil
}

func (c *Client) CreatePhase(ctx context.Context, projectID string, fields PhaseFields, actorID string) (*Phase, error) {
	endpoint := fmt.Sprintf("%s/api/projects/%s/phases", c.baseURL, projectID)
	payload := struct {
		PhaseFields
		ActorID string `json:"actor_id,omitempty"`
	}{fields, actorID}

	var phase Phase
	if err := c.post(ctx, endpoint, payload, &phase); err != nil {
		return nil, fmt.Errorf("creating phase: %w", err)
	}
	return &phase, nil
}

// NextPhaseOrder returns the order number the next phase of the project
// should take.
func (c *Client) NextPhaseOrder(ctx context.Context, projectID string) (int, error) {
	endpoint := fmt.Sprintf("%s/api/projects/%s/phases/next-order", c.baseURL, projectID)
	var resp nextOrderResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return 0, fmt.Errorf("fetching next phase order: %w", err)
	}
	return resp.Order, nil
}

// ReportSummary returns task aggregates for a reporting window.
func (c *Client) ReportSummary(ctx context.Context, from, to time.Time) (*Summary, error) {
	endpoint := fmt.Sprintf("%s/api/reports/summary?from=%s&to=%s",
		c.baseURL, url.QueryEscape(from.Format(time.RFC3339)), url.QueryEscape(to.Format(time.RFC3339)))
	var s Summary
	if err := c.get(ctx, endpoint, &s); err != nil {
		return nil, fmt.Errorf("fetching report summary: %w", err)
	}
	return &s, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, endpoint string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("planner API status %d: %s", resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding planner response: %w", err)
	}
	return nil
}
