// Package plan builds and tracks multi-day learning plans drawn from
// existing catalog content.
package plan

import (
	"encoding/json"
	"time"
)

// TaskView is one scheduled exercise, enriched with its content payload
// and app display metadata.
type TaskView struct {
	ID          int64           `json:"id"`
	AppID       int64           `json:"app_id"`
	AppName     string          `json:"app_name"`
	ContentID   int64           `json:"content_id"`
	Content     json.RawMessage `json:"content"`
	OrderIndex  int             `json:"order_index"`
	Completed   bool            `json:"completed"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// Day groups a plan's tasks for one day.
type Day struct {
	DayNumber int        `json:"day_number"`
	Tasks     []TaskView `json:"tasks"`
}

// View is the assembled plan returned to callers.
type View struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	TotalDays   int        `json:"total_days"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Days        []Day      `json:"days"`
}

// ActiveResult is the answer to an active-plan lookup.
type ActiveResult struct {
	Plan             *View `json:"plan"`
	InsufficientData bool  `json:"insufficient_data"`
}

// CompleteResult reports a completion call's effect.
type CompleteResult struct {
	// PlanCompleted is true when this call completed the last open task
	// and the plan flipped to its terminal completed status.
	PlanCompleted bool `json:"plan_completed"`
}

// candidate is one content item eligible for scheduling, tagged by why
// it qualifies.
type candidate struct {
	ContentID    int64
	AppID        int64
	AppName      string
	Priority     string // weak, review or unseen
	SuccessCount int
	FailureCount int
	Preview      string
}

const (
	priorityWeak   = "weak"
	priorityReview = "review"
	priorityUnseen = "unseen"
)

// proposedPlan is the generator's raw output. Untrusted: every task id
// must survive candidate-pool validation before persistence.
type proposedPlan struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Days        []proposedDay `json:"days"`
}

type proposedDay struct {
	Day     int     `json:"day"`
	Focus   string  `json:"focus"`
	TaskIDs []int64 `json:"task_ids"`
}
