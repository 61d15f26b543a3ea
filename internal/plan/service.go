package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lernpfad/backend/internal/domain"
	"github.com/lernpfad/backend/internal/llm"
	"github.com/lernpfad/backend/internal/store"
)

const (
	defaultDays = 3
	maxDays     = 7
)

// Config controls plan generation.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   8192,
		Temperature: 0.7,
	}
}

// Service generates and tracks multi-day learning plans.
type Service struct {
	progress store.ProgressRepo
	catalog  store.CatalogRepo
	plans    store.PlanRepo
	provider llm.Provider
	cfg      Config
	log      *zap.Logger
	now      func() time.Time
}

// NewService creates a plan service.
func NewService(st *store.Store, provider llm.Provider, cfg Config, log *zap.Logger) *Service {
	return &Service{
		progress: st.ProgressRepo(),
		catalog:  st.CatalogRepo(),
		plans:    st.PlanRepo(),
		provider: provider,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// ActivePlan returns the learner's active plan, tasks grouped by day and
// enriched with content and app metadata. With no active plan it reports
// "not enough data" when the candidate pool could not reach its floor,
// otherwise "ready to generate" (a nil plan).
func (s *Service) ActivePlan(ctx context.Context, userID string) (*ActiveResult, error) {
	p, tasks, err := s.plans.Active(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load active plan: %w", err)
	}
	if p == nil {
		count, err := s.progress.Count(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("count progress: %w", err)
		}
		if count < minCandidates {
			return &ActiveResult{InsufficientData: true}, nil
		}
		return &ActiveResult{}, nil
	}

	view, err := s.enrich(ctx, p, tasks)
	if err != nil {
		return nil, err
	}
	return &ActiveResult{Plan: view}, nil
}

// Generate builds a new plan over the requested number of days (1 to 7,
// 0 selects the default of 3). Any previously active plan is abandoned
// in the same transaction that persists the new one.
func (s *Service) Generate(ctx context.Context, userID string, requestedDays int) (*View, error) {
	if requestedDays == 0 {
		requestedDays = defaultDays
	}
	if requestedDays < 1 || requestedDays > maxDays {
		return nil, &domain.ValidationError{Msg: fmt.Sprintf("requested days must be between 1 and %d", maxDays)}
	}

	var (
		rows   []store.ProgressRow
		apps   []store.App
		unseen []store.ContentItem
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
		unseen, err = s.catalog.UnseenContent(gctx, userID, maxUnseenCandidates)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load plan inputs: %w", err)
	}

	pool := buildPool(rows, unseen, apps)
	if len(pool) < minCandidates {
		return nil, domain.ErrInsufficientData
	}

	ctx = llm.WithPurpose(ctx, "plan")
	ctx = llm.WithUser(ctx, userID)

	resp, err := s.provider.Generate(ctx, llm.Request{
		System:      planSystemPrompt,
		User:        buildPlanUserMessage(pool, requestedDays),
		Schema:      PlanSchema,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, &domain.ProviderError{Err: err}
	}

	cleaned := llm.StripFences(resp.Content)
	var out proposedPlan
	if err := json.Unmarshal(cleaned, &out); err != nil {
		return nil, &domain.InvalidGenerationError{Raw: string(resp.Content), Err: fmt.Errorf("parse plan response: %w", err)}
	}

	tasks, totalDays, err := s.validate(out, pool)
	if err != nil {
		return nil, &domain.InvalidGenerationError{Raw: string(resp.Content), Err: err}
	}

	now := s.now()
	p := store.LearningPlan{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       out.Title,
		Description: out.Description,
		Status:      store.PlanActive,
		TotalDays:   totalDays,
		CreatedAt:   now,
	}
	if err := s.plans.Create(ctx, p, tasks); err != nil {
		return nil, fmt.Errorf("persist plan: %w", err)
	}

	res, err := s.ActivePlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	if res.Plan == nil {
		return nil, fmt.Errorf("reload plan %s: not found", p.ID)
	}
	return res.Plan, nil
}

// validate turns the untrusted proposal into persistable task rows: task
// ids outside the candidate pool are dropped, then days left empty are
// dropped, and a proposal with no surviving day fails. Surviving days
// are renumbered densely in proposal order.
func (s *Service) validate(out proposedPlan, pool []candidate) ([]store.PlanTask, int, error) {
	byID := lo.KeyBy(pool, func(c candidate) int64 { return c.ContentID })

	days := make([]proposedDay, len(out.Days))
	copy(days, out.Days)
	sort.SliceStable(days, func(i, j int) bool { return days[i].Day < days[j].Day })

	var tasks []store.PlanTask
	dayNumber := 0
	for _, day := range days {
		var kept []candidate
		for _, id := range day.TaskIDs {
			c, ok := byID[id]
			if !ok {
				s.log.Warn("dropping task id outside candidate pool",
					zap.Int64("task_id", id), zap.Int("day", day.Day))
				continue
			}
			kept = append(kept, c)
		}
		if len(kept) == 0 {
			continue
		}
		dayNumber++
		for i, c := range kept {
			tasks = append(tasks, store.PlanTask{
				DayNumber:  dayNumber,
				OrderIndex: i + 1,
				AppID:      c.AppID,
				ContentID:  c.ContentID,
			})
		}
	}

	if dayNumber == 0 {
		return nil, 0, fmt.Errorf("no day survived candidate validation")
	}
	return tasks, dayNumber, nil
}

// CompleteTasks marks the given tasks under the user's active plan as
// completed. When the last open task completes, the plan flips to
// completed in the same operation.
func (s *Service) CompleteTasks(ctx context.Context, userID string, taskIDs []int64) (*CompleteResult, error) {
	if len(taskIDs) == 0 {
		return nil, &domain.ValidationError{Msg: "no task ids supplied"}
	}
	completed, err := s.plans.CompleteTasks(ctx, userID, taskIDs, s.now())
	if err != nil {
		return nil, fmt.Errorf("complete plan tasks: %w", err)
	}
	return &CompleteResult{PlanCompleted: completed}, nil
}

// Abandon flips the user's active plan to abandoned. No-op without one.
func (s *Service) Abandon(ctx context.Context, userID string) error {
	if err := s.plans.AbandonActive(ctx, userID); err != nil {
		return fmt.Errorf("abandon plan: %w", err)
	}
	return nil
}

// enrich joins plan tasks with their content payloads and app metadata
// and groups them by day.
func (s *Service) enrich(ctx context.Context, p *store.LearningPlan, tasks []store.PlanTask) (*View, error) {
	ids := lo.Map(tasks, func(t store.PlanTask, _ int) int64 { return t.ContentID })
	content, err := s.catalog.ContentByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load plan content: %w", err)
	}
	apps, err := s.catalog.Apps(ctx)
	if err != nil {
		return nil, fmt.Errorf("load apps: %w", err)
	}
	appsByID := lo.KeyBy(apps, func(a store.App) int64 { return a.ID })

	view := &View{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Status:      p.Status,
		TotalDays:   p.TotalDays,
		CreatedAt:   p.CreatedAt,
		CompletedAt: p.CompletedAt,
	}

	byDay := make(map[int][]TaskView)
	for _, t := range tasks {
		tv := TaskView{
			ID:          t.ID,
			AppID:       t.AppID,
			AppName:     appsByID[t.AppID].Name,
			ContentID:   t.ContentID,
			OrderIndex:  t.OrderIndex,
			Completed:   t.Completed,
			CompletedAt: t.CompletedAt,
		}
		if item, ok := content[t.ContentID]; ok {
			tv.Content = item.Payload
		}
		byDay[t.DayNumber] = append(byDay[t.DayNumber], tv)
	}

	dayNumbers := lo.Keys(byDay)
	sort.Ints(dayNumbers)
	for _, n := range dayNumbers {
		view.Days = append(view.Days, Day{DayNumber: n, Tasks: byDay[n]})
	}
	return view, nil
}
