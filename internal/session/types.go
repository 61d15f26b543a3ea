// Package session generates disposable batches of fresh practice tasks
// targeting a learner's current weak areas.
package session

import (
	"encoding/json"
	"time"

	"github.com/lernpfad/backend/internal/store"
)

// Status is the derived state of a session, computed from its task set
// at read time. A session is active while at least one pristine task
// remains and exhausted once every task has been worked through.
type Status string

const (
	StatusActive    Status = "active"
	StatusExhausted Status = "exhausted"
)

// TheoryCard is one explanation card accompanying the generated tasks.
type TheoryCard struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Task is one generated exercise inside a session.
type Task struct {
	ID         int64           `json:"id"`
	AppID      int64           `json:"app_id"`
	Content    json.RawMessage `json:"content"`
	OrderIndex int             `json:"order_index"`
	Pristine   bool            `json:"pristine"`
}

// LearningSession is the assembled session returned to callers.
type LearningSession struct {
	SessionID string       `json:"session_id"`
	Topic     string       `json:"topic"`
	Text      string       `json:"text"`
	Theory    []TheoryCard `json:"theory"`
	Tasks     []Task       `json:"tasks"`
	Status    Status       `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

// ActiveResult is the answer to an active-session lookup. Exactly one of
// three shapes: a session, an insufficient-data signal with starter
// suggestions, or neither (ready to generate).
type ActiveResult struct {
	Session          *LearningSession `json:"session"`
	InsufficientData bool             `json:"insufficient_data"`
	StarterApps      []store.App      `json:"starter_apps,omitempty"`
}

// proposedSession is the generator's raw output shape. It is untrusted:
// tasks are filtered before anything derived from it is persisted.
type proposedSession struct {
	Topic  string         `json:"topic"`
	Text   string         `json:"text"`
	Theory []TheoryCard   `json:"theory"`
	Tasks  []proposedTask `json:"tasks"`
}

type proposedTask struct {
	AppID   int64           `json:"app_id"`
	Content json.RawMessage `json:"content"`
}
