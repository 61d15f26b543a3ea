package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lernpfad/backend/internal/domain"
	"github.com/lernpfad/backend/internal/llm"
	"github.com/lernpfad/backend/internal/progress"
	"github.com/lernpfad/backend/internal/store"
)

// minProgressRows is the history floor below which the active-session
// lookup reports "not enough data" instead of "ready to generate".
const minProgressRows = 3

// starterAppCount is how many random starter apps accompany the
// insufficient-data signal.
const starterAppCount = 5

// Service orchestrates session generation: progress plus catalog plus
// preference in, a persisted batch of fresh tasks out.
type Service struct {
	progress store.ProgressRepo
	catalog  store.CatalogRepo
	sessions store.SessionRepo
	settings store.SettingsRepo
	provider llm.Provider
	cfg      Config
	log      *zap.Logger
	now      func() time.Time
}

// NewService creates a session service.
func NewService(st *store.Store, provider llm.Provider, cfg Config, log *zap.Logger) *Service {
	return &Service{
		progress: st.ProgressRepo(),
		catalog:  st.CatalogRepo(),
		sessions: st.SessionRepo(),
		settings: st.SettingsRepo(),
		provider: provider,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// ActiveSession returns the learner's most recent session that still has
// pristine tasks. With no such session it reports either "not enough
// data" (fewer than 3 progress rows, with starter suggestions) or "ready
// to generate" (a nil session).
func (s *Service) ActiveSession(ctx context.Context, userID string) (*ActiveResult, error) {
	tasks, err := s.sessions.Active(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load active session: %w", err)
	}
	if len(tasks) > 0 {
		return &ActiveResult{Session: assemble(tasks)}, nil
	}

	count, err := s.progress.Count(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count progress: %w", err)
	}
	if count < minProgressRows {
		starters, err := s.catalog.RandomApps(ctx, starterAppCount)
		if err != nil {
			return nil, fmt.Errorf("suggest starter apps: %w", err)
		}
		return &ActiveResult{InsufficientData: true, StarterApps: starters}, nil
	}

	return &ActiveResult{}, nil
}

// Generate creates a fresh practice session from the learner's weak
// areas. The generator's output is filtered before persisting; when
// every task is discarded a congratulatory session is returned without
// touching storage.
func (s *Service) Generate(ctx context.Context, userID string) (*LearningSession, error) {
	var (
		rows    []store.ProgressRow
		apps    []store.App
		variant string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rows, err = s.progress.ForUser(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		apps, err = s.catalog.Apps(gctx)
		return err
	})
	g.Go(func() (err error) {
		variant, err = s.settings.SpellingVariant(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load generation inputs: %w", err)
	}

	if len(rows) == 0 {
		return nil, domain.ErrInsufficientData
	}

	now := s.now()
	summary := progress.BuildSummary(rows, apps, now)

	ctx = llm.WithPurpose(ctx, "session")
	ctx = llm.WithUser(ctx, userID)

	resp, err := s.provider.Generate(ctx, llm.Request{
		System:      sessionSystemPrompt,
		User:        buildSessionUserMessage(apps, summary, variant),
		Schema:      SessionSchema,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, &domain.ProviderError{Err: err}
	}

	cleaned := llm.StripFences(resp.Content)
	var out proposedSession
	if err := json.Unmarshal(cleaned, &out); err != nil {
		return nil, &domain.InvalidGenerationError{Raw: string(resp.Content), Err: fmt.Errorf("parse session response: %w", err)}
	}

	tasks := make([]proposedTask, 0, len(out.Tasks))
	for _, t := range out.Tasks {
		if emptyContent(t.Content) {
			s.log.Warn("discarding generated task without content", zap.Int64("app_id", t.AppID))
			continue
		}
		tasks = append(tasks, t)
	}

	if len(tasks) == 0 {
		return congratulatorySession(now), nil
	}

	theoryJSON, err := json.Marshal(out.Theory)
	if err != nil {
		return nil, fmt.Errorf("encode theory cards: %w", err)
	}

	sessionID := uuid.NewString()
	rowsToInsert := make([]store.SessionTask, len(tasks))
	for i, t := range tasks {
		rowsToInsert[i] = store.SessionTask{
			SessionID:  sessionID,
			UserID:     userID,
			Topic:      out.Topic,
			Text:       out.Text,
			Theory:     theoryJSON,
			AppID:      t.AppID,
			Content:    t.Content,
			OrderIndex: i + 1,
			Pristine:   true,
			CreatedAt:  now,
		}
	}

	ids, err := s.sessions.CreateTasks(ctx, rowsToInsert)
	if err != nil {
		return nil, fmt.Errorf("persist session tasks: %w", err)
	}

	result := &LearningSession{
		SessionID: sessionID,
		Topic:     out.Topic,
		Text:      out.Text,
		Theory:    out.Theory,
		Tasks:     make([]Task, len(tasks)),
		Status:    StatusActive,
		CreatedAt: now,
	}
	for i, t := range tasks {
		result.Tasks[i] = Task{
			ID:         ids[i],
			AppID:      t.AppID,
			Content:    t.Content,
			OrderIndex: i + 1,
			Pristine:   true,
		}
	}
	return result, nil
}

// MarkTasksDone clears the pristine flag on the given tasks. Idempotent;
// ids the user does not own are ignored.
func (s *Service) MarkTasksDone(ctx context.Context, userID string, taskIDs []int64) error {
	if len(taskIDs) == 0 {
		return &domain.ValidationError{Msg: "no task ids supplied"}
	}
	if err := s.sessions.MarkDone(ctx, userID, taskIDs); err != nil {
		return fmt.Errorf("mark tasks done: %w", err)
	}
	return nil
}

// assemble rebuilds the session view from its stored task rows. The
// rows arrive ordered by order_index; topic, text and theory are
// denormalized onto every row, so the first row carries the header.
func assemble(rows []store.SessionTask) *LearningSession {
	head := rows[0]

	var theory []TheoryCard
	if len(head.Theory) > 0 {
		// Malformed theory degrades to none; the tasks still stand.
		_ = json.Unmarshal(head.Theory, &theory)
	}

	sess := &LearningSession{
		SessionID: head.SessionID,
		Topic:     head.Topic,
		Text:      head.Text,
		Theory:    theory,
		Tasks:     make([]Task, len(rows)),
		Status:    StatusExhausted,
		CreatedAt: head.CreatedAt,
	}
	for i, r := range rows {
		sess.Tasks[i] = Task{
			ID:         r.ID,
			AppID:      r.AppID,
			Content:    r.Content,
			OrderIndex: r.OrderIndex,
			Pristine:   r.Pristine,
		}
		if r.Pristine {
			sess.Status = StatusActive
		}
	}
	return sess
}

func congratulatorySession(now time.Time) *LearningSession {
	return &LearningSession{
		Topic:     "Alles gemeistert!",
		Text:      "Super gemacht! Im Moment gibt es keine schwachen Themen zu üben. Mach einfach weiter so.",
		Theory:    []TheoryCard{},
		Tasks:     []Task{},
		Status:    StatusExhausted,
		CreatedAt: now,
	}
}

func emptyContent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", `""`, "{}", "[]":
		return true
	}
	return false
}
