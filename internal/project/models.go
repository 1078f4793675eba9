package project

import "time"

type Project struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

type Task struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"project_id"`
	Title     string     `json:"title"`
	Priority  string     `json:"priority"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	CreatedBy string     `json:"created_by,omitempty"`
}

// TaskFields is the creation payload for a task.
type TaskFields struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

type Phase struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Order     int    `json:"order"`
}

// PhaseFields is the creation payload for a phase.
type PhaseFields struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// Summary is the planner's aggregate view over one reporting period.
// Counts and rates only, never raw rows.
type Summary struct {
	TotalTasks     int      `json:"total_tasks"`
	CompletedTasks int      `json:"completed_tasks"`
	OverdueTasks   int      `json:"overdue_tasks"`
	CompletionRate float64  `json:"completion_rate"`
	TopPerformers  []string `json:"top_performers,omitempty"`
	Gaps           []string `json:"gaps,omitempty"`
}

type nextOrderResponse struct {
	Order int `json:"order"`
}
