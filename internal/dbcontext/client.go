// Package dbcontext fetches the planner's aggregate workspace snapshot
// injected into the prompt: counts and short summaries, never raw rows.
package dbcontext

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Snapshot struct {
	ActiveProjects   int      `json:"active_projects"`
	OpenTasks        int      `json:"open_tasks"`
	OverdueTasks     int      `json:"overdue_tasks"`
	UpcomingMeetings int      `json:"upcoming_meetings"`
	TeamMembers      int      `json:"team_members"`
	Highlights       []string `json:"highlights,omitempty"`
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) GetSnapshot(ctx context.Context) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/context/snapshot", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching context snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("context snapshot status %d: %s", resp.StatusCode, body)
	}

	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}
