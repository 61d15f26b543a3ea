package store

import (
	"context"
	"encoding/json"
	"time"
)

// App is one quiz-style exercise in the catalog.
type App struct {
	ID          int64
	Name        string
	Description string
	// TaskSchema is the machine-readable shape of this app's task content,
	// stored as a JSON document. Passed verbatim into generation prompts.
	TaskSchema string
}

// ContentItem is one question/exercise payload owned by the catalog.
type ContentItem struct {
	ID         int64
	AppID      int64
	Payload    json.RawMessage
	SkillLevel *string
}

// ProgressRow is a question_progress row joined with its app and content.
type ProgressRow struct {
	UserID        string
	AppID         int64
	AppName       string
	ContentID     int64
	Payload       json.RawMessage
	SkillLevel    *string
	SuccessCount  int
	FailureCount  int
	LastAttemptAt *time.Time
}

// SessionTask is one generated exercise inside a practice session.
// Topic, Text and Theory are denormalized onto every row so a session can
// be read back from the single session_tasks table.
type SessionTask struct {
	ID         int64
	SessionID  string
	UserID     string
	Topic      string
	Text       string
	Theory     json.RawMessage
	AppID      int64
	Content    json.RawMessage
	OrderIndex int
	Pristine   bool
	CreatedAt  time.Time
}

// Plan status values.
const (
	PlanActive    = "active"
	PlanCompleted = "completed"
	PlanAbandoned = "abandoned"
)

// LearningPlan is a multi-day schedule of existing content.
type LearningPlan struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Status      string
	TotalDays   int
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// PlanTask is one scheduled exercise inside a plan day.
type PlanTask struct {
	ID          int64
	PlanID      string
	DayNumber   int
	OrderIndex  int
	AppID       int64
	ContentID   int64
	Completed   bool
	CompletedAt *time.Time
}

// CurriculumNode is one entry in the static pedagogical hierarchy.
type CurriculumNode struct {
	Code        string
	Fachbereich string
	Level       string
	ParentCode  *string
	Zyklus      *int
	Title       string
	Description string
}

// CurriculumProgress is the per-user overlay onto one curriculum node.
type CurriculumProgress struct {
	UserID       string
	NodeCode     string
	MasteryLevel int
	Status       string
}

// ProgressRepo reads a learner's per-question history. The rows are written
// by exercise completion events outside this core; Record exists for that
// collaborator and for seeding.
type ProgressRepo interface {
	// ForUser returns all progress rows joined with app and content
	// metadata, ordered by failure_count desc, success_count asc.
	ForUser(ctx context.Context, userID string) ([]ProgressRow, error)

	// Count returns the number of progress rows for a user.
	Count(ctx context.Context, userID string) (int, error)

	// Record upserts one progress row.
	Record(ctx context.Context, row ProgressRow) error
}

// CatalogRepo reads the app and content catalog.
type CatalogRepo interface {
	// Apps returns every app in the catalog.
	Apps(ctx context.Context) ([]App, error)

	// RandomApps returns up to n randomly chosen apps.
	RandomApps(ctx context.Context, n int) ([]App, error)

	// ContentByIDs resolves content items by id.
	ContentByIDs(ctx context.Context, ids []int64) (map[int64]ContentItem, error)

	// UnseenContent returns up to limit randomly sampled content items the
	// user has never attempted.
	UnseenContent(ctx context.Context, userID string, limit int) ([]ContentItem, error)

	// InsertApp and InsertContent exist for seeding.
	InsertApp(ctx context.Context, app App) (int64, error)
	InsertContent(ctx context.Context, item ContentItem) (int64, error)
}

// SessionRepo manages generated practice sessions.
type SessionRepo interface {
	// Active returns all tasks of the most recent session that still has
	// at least one pristine task, ordered by order_index. Returns nil if
	// no such session exists.
	Active(ctx context.Context, userID string) ([]SessionTask, error)

	// CreateTasks inserts all tasks of a new session in one atomic batch
	// and returns their generated ids in submission order.
	CreateTasks(ctx context.Context, tasks []SessionTask) ([]int64, error)

	// MarkDone clears the pristine flag on the given tasks, scoped to the
	// user. Idempotent; unknown ids are ignored.
	MarkDone(ctx context.Context, userID string, taskIDs []int64) error
}

// PlanRepo manages learning plans and their tasks.
type PlanRepo interface {
	// Active returns the user's active plan with its tasks ordered by
	// day_number then order_index, or (nil, nil, nil) if none.
	Active(ctx context.Context, userID string) (*LearningPlan, []PlanTask, error)

	// Create abandons any active plan for the user and inserts the new
	// plan with its tasks, all inside one transaction. SQLite serializes
	// write transactions, which is what keeps "at most one active plan
	// per user" true under concurrent generate calls.
	Create(ctx context.Context, plan LearningPlan, tasks []PlanTask) error

	// AbandonActive flips the user's active plan to abandoned. No-op if
	// none is active.
	AbandonActive(ctx context.Context, userID string) error

	// CompleteTasks marks the given tasks under the user's active plan as
	// completed and, when no incomplete task remains, flips the plan to
	// completed in the same transaction. Returns whether the plan was
	// completed by this call.
	CompleteTasks(ctx context.Context, userID string, taskIDs []int64, now time.Time) (bool, error)
}

// CurriculumRepo reads the static curriculum tree and its per-user overlay.
type CurriculumRepo interface {
	// Nodes returns curriculum nodes, optionally filtered by a maximum
	// zyklus and/or a fachbereich code.
	Nodes(ctx context.Context, maxZyklus *int, fachbereich string) ([]CurriculumNode, error)

	// ProgressForUser returns the user's overlay keyed by node code.
	ProgressForUser(ctx context.Context, userID string) (map[string]CurriculumProgress, error)

	// InsertNode exists for seeding.
	InsertNode(ctx context.Context, node CurriculumNode) error

	// UpsertProgress records a mastery overlay row.
	UpsertProgress(ctx context.Context, p CurriculumProgress) error
}

// SettingsRepo reads per-user preferences.
type SettingsRepo interface {
	// SpellingVariant returns the user's spelling-variant preference
	// ("de" or "ch"). Defaults to "de" when the user has no settings row.
	SpellingVariant(ctx context.Context, userID string) (string, error)

	// SetSpellingVariant upserts the preference.
	SetSpellingVariant(ctx context.Context, userID, variant string) error
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	UserID       string
	Purpose      string
	Provider     string
	Model        string
	Prompt       string
	Response     string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// LLMRequestEvent is one persisted llm_request_log row.
type LLMRequestEvent struct {
	ID        int64
	CreatedAt time.Time
	LLMRequestEventData
}

// LLMUsage aggregates token consumption for one purpose or model.
type LLMUsage struct {
	Key          string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// EventRepo provides append and inspection access to diagnostics events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call. Callers treat failures as
	// non-fatal: request logging must never fail the primary operation.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// RecentLLMRequests returns the newest events, most recent first.
	RecentLLMRequests(ctx context.Context, limit int) ([]LLMRequestEvent, error)

	// GetLLMRequest returns one event by id, or nil if not found.
	GetLLMRequest(ctx context.Context, id int64) (*LLMRequestEvent, error)

	// UsageByModel aggregates token usage per model.
	UsageByModel(ctx context.Context) ([]LLMUsage, error)

	// UsageByPurpose aggregates token usage per purpose.
	UsageByPurpose(ctx context.Context) ([]LLMUsage, error)
}
