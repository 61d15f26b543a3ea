package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lernpfad/backend/internal/domain"
	"github.com/lernpfad/backend/internal/llm"
	"github.com/lernpfad/backend/internal/store"
)

func newTestService(t *testing.T, provider llm.Provider) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	svc := NewService(st, provider, DefaultConfig(), zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	return svc, st
}

// seedPool creates one app with total content items and records progress
// on the first attempted of them. The remaining items stay unseen.
func seedPool(t *testing.T, st *store.Store, user string, total, attempted int) []int64 {
	t.Helper()
	ctx := context.Background()
	appID, err := st.CatalogRepo().InsertApp(ctx, store.App{
		Name:       "Wortarten",
		TaskSchema: `{"word":"string"}`,
	})
	require.NoError(t, err)

	var contentIDs []int64
	for i := 0; i < total; i++ {
		id, err := st.CatalogRepo().InsertContent(ctx, store.ContentItem{
			AppID:   appID,
			Payload: json.RawMessage(fmt.Sprintf(`{"word":"Wort%d"}`, i)),
		})
		require.NoError(t, err)
		contentIDs = append(contentIDs, id)
	}
	for i := 0; i < attempted; i++ {
		err := st.ProgressRepo().Record(ctx, store.ProgressRow{
			UserID:       user,
			AppID:        appID,
			ContentID:    contentIDs[i],
			SuccessCount: 1,
			FailureCount: 2,
		})
		require.NoError(t, err)
	}
	return contentIDs
}

func planOutput(ids ...int64) json.RawMessage {
	quoted := ""
	for i, id := range ids {
		if i > 0 {
			quoted += ","
		}
		quoted += fmt.Sprint(id)
	}
	return json.RawMessage(fmt.Sprintf(
		`{"title":"Wortarten-Woche","description":"Schritt für Schritt sicher werden.","days":[{"day":1,"focus":"Grundlagen","task_ids":[%s]}]}`,
		quoted))
}

func TestGenerate_PoolBoundaryAtFive(t *testing.T) {
	t.Run("four candidates fail", func(t *testing.T) {
		mock := llm.NewMockProvider()
		svc, st := newTestService(t, mock)
		seedPool(t, st, "lea", 4, 4)

		_, err := svc.Generate(context.Background(), "lea", 0)
		assert.ErrorIs(t, err, domain.ErrInsufficientData)
		assert.Empty(t, mock.Calls)
	})

	t.Run("five candidates succeed", func(t *testing.T) {
		svc, st := newTestService(t, nil)
		ids := seedPool(t, st, "lea", 5, 5)
		svc.provider = llm.NewMockProvider(llm.MockResponse{Content: planOutput(ids[:3]...)})

		view, err := svc.Generate(context.Background(), "lea", 0)
		require.NoError(t, err)
		assert.Equal(t, store.PlanActive, view.Status)
	})
}

func TestGenerate_UnseenCountsTowardPool(t *testing.T) {
	// Two attempted plus three unseen reaches the floor.
	svc, st := newTestService(t, nil)
	ids := seedPool(t, st, "lea", 5, 2)
	svc.provider = llm.NewMockProvider(llm.MockResponse{Content: planOutput(ids...)})

	view, err := svc.Generate(context.Background(), "lea", 0)
	require.NoError(t, err)
	require.Len(t, view.Days, 1)
	assert.Len(t, view.Days[0].Tasks, 5)
}

func TestGenerate_PersistsGroupedByDay(t *testing.T) {
	svc, st := newTestService(t, nil)
	ids := seedPool(t, st, "lea", 6, 6)
	svc.provider = llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(fmt.Sprintf(
		`{"title":"Plan","description":"d","days":[
			{"day":2,"focus":"b","task_ids":[%d,%d]},
			{"day":1,"focus":"a","task_ids":[%d,%d,%d]}
		]}`, ids[3], ids[4], ids[0], ids[1], ids[2]))})

	view, err := svc.Generate(context.Background(), "lea", 2)
	require.NoError(t, err)

	assert.Equal(t, 2, view.TotalDays)
	require.Len(t, view.Days, 2)
	// Days come back ascending regardless of proposal order.
	assert.Equal(t, 1, view.Days[0].DayNumber)
	require.Len(t, view.Days[0].Tasks, 3)
	assert.Equal(t, 2, view.Days[1].DayNumber)
	require.Len(t, view.Days[1].Tasks, 2)

	first := view.Days[0].Tasks[0]
	assert.Equal(t, ids[0], first.ContentID)
	assert.Equal(t, "Wortarten", first.AppName)
	assert.JSONEq(t, `{"word":"Wort0"}`, string(first.Content))
	assert.Equal(t, 1, first.OrderIndex)
	assert.False(t, first.Completed)
}

func TestGenerate_UnknownTaskIDsDropped(t *testing.T) {
	svc, st := newTestService(t, nil)
	ids := seedPool(t, st, "lea", 5, 5)
	svc.provider = llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(fmt.Sprintf(
		`{"title":"Plan","description":"d","days":[{"day":1,"focus":"a","task_ids":[%d,999999,%d]}]}`,
		ids[0], ids[1]))})

	view, err := svc.Generate(context.Background(), "lea", 1)
	require.NoError(t, err)
	require.Len(t, view.Days, 1)
	assert.Len(t, view.Days[0].Tasks, 2)
}

func TestGenerate_AllIDsUnknownFailsWithoutPersisting(t *testing.T) {
	svc, st := newTestService(t, nil)
	seedPool(t, st, "lea", 5, 5)
	svc.provider = llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(
		`{"title":"Plan","description":"d","days":[{"day":1,"focus":"x","task_ids":[999999]}]}`)})

	_, err := svc.Generate(context.Background(), "lea", 1)
	var invErr *domain.InvalidGenerationError
	require.ErrorAs(t, err, &invErr)

	p, _, err := st.PlanRepo().Active(context.Background(), "lea")
	require.NoError(t, err)
	assert.Nil(t, p, "an empty plan must never be persisted")
}

func TestGenerate_EmptyDaysDroppedAndRenumbered(t *testing.T) {
	svc, st := newTestService(t, nil)
	ids := seedPool(t, st, "lea", 5, 5)
	svc.provider = llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(fmt.Sprintf(
		`{"title":"Plan","description":"d","days":[
			{"day":1,"focus":"a","task_ids":[999999]},
			{"day":2,"focus":"b","task_ids":[%d,%d]}
		]}`, ids[0], ids[1]))})

	view, err := svc.Generate(context.Background(), "lea", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, view.TotalDays)
	require.Len(t, view.Days, 1)
	assert.Equal(t, 1, view.Days[0].DayNumber, "surviving days are renumbered densely")
}

func TestGenerate_InvalidDayCount(t *testing.T) {
	svc, st := newTestService(t, llm.NewMockProvider())
	seedPool(t, st, "lea", 5, 5)

	for _, days := range []int{-1, 8} {
		_, err := svc.Generate(context.Background(), "lea", days)
		var valErr *domain.ValidationError
		assert.ErrorAs(t, err, &valErr, "days=%d", days)
	}
}

func TestGenerate_PromptCapsCandidatesAtFifty(t *testing.T) {
	svc, st := newTestService(t, nil)
	ids := seedPool(t, st, "lea", 60, 60)
	mock := llm.NewMockProvider(llm.MockResponse{Content: planOutput(ids[:3]...)})
	svc.provider = mock

	_, err := svc.Generate(context.Background(), "lea", 0)
	require.NoError(t, err)

	require.Len(t, mock.Calls, 1)
	prompt := mock.Calls[0].User
	listed := 0
	for _, id := range ids {
		if strings.Contains(prompt, fmt.Sprintf("- id %d [", id)) {
			listed++
		}
	}
	assert.LessOrEqual(t, listed, maxPromptCandidates)
	assert.Contains(t, prompt, "3-day plan")
}

func TestGenerate_AbandonsPreviousActivePlan(t *testing.T) {
	svc, st := newTestService(t, nil)
	ids := seedPool(t, st, "lea", 5, 5)
	svc.provider = llm.NewMockProvider(
		llm.MockResponse{Content: planOutput(ids[:3]...)},
		llm.MockResponse{Content: planOutput(ids[2:]...)},
	)

	first, err := svc.Generate(context.Background(), "lea", 1)
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), "lea", 1)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	// Exactly one active plan; the first is now abandoned.
	res, err := svc.ActivePlan(context.Background(), "lea")
	require.NoError(t, err)
	require.NotNil(t, res.Plan)
	assert.Equal(t, second.ID, res.Plan.ID)

	var status string
	err = st.DB().QueryRow(`SELECT status FROM learning_plans WHERE id = ?`, first.ID).Scan(&status)
	require.NoError(t, err)
	assert.Equal(t, store.PlanAbandoned, status)
}

func TestGenerate_ProviderFailure(t *testing.T) {
	svc, st := newTestService(t, nil)
	seedPool(t, st, "lea", 5, 5)
	svc.provider = llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})

	_, err := svc.Generate(context.Background(), "lea", 0)
	var provErr *domain.ProviderError
	require.ErrorAs(t, err, &provErr)

	p, _, err := st.PlanRepo().Active(context.Background(), "lea")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestCompleteTasks_LastTaskCompletesPlan(t *testing.T) {
	svc, st := newTestService(t, nil)
	ids := seedPool(t, st, "lea", 5, 5)
	svc.provider = llm.NewMockProvider(llm.MockResponse{Content: planOutput(ids[:2]...)})

	view, err := svc.Generate(context.Background(), "lea", 1)
	require.NoError(t, err)
	tasks := view.Days[0].Tasks
	require.Len(t, tasks, 2)

	res, err := svc.CompleteTasks(context.Background(), "lea", []int64{tasks[0].ID})
	require.NoError(t, err)
	assert.False(t, res.PlanCompleted)

	res, err = svc.CompleteTasks(context.Background(), "lea", []int64{tasks[1].ID})
	require.NoError(t, err)
	assert.True(t, res.PlanCompleted, "last task flips the plan in the same operation")

	// Terminal plans stay untouched by further completion calls.
	res, err = svc.CompleteTasks(context.Background(), "lea", []int64{tasks[0].ID})
	require.NoError(t, err)
	assert.False(t, res.PlanCompleted)

	var status string
	err = st.DB().QueryRow(`SELECT status FROM learning_plans WHERE id = ?`, view.ID).Scan(&status)
	require.NoError(t, err)
	assert.Equal(t, store.PlanCompleted, status)
}

func TestCompleteTasks_EmptyIDsRejected(t *testing.T) {
	svc, _ := newTestService(t, llm.NewMockProvider())
	_, err := svc.CompleteTasks(context.Background(), "lea", nil)
	var valErr *domain.ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestAbandon(t *testing.T) {
	svc, st := newTestService(t, nil)
	ids := seedPool(t, st, "lea", 5, 5)
	svc.provider = llm.NewMockProvider(llm.MockResponse{Content: planOutput(ids[:2]...)})

	_, err := svc.Generate(context.Background(), "lea", 1)
	require.NoError(t, err)

	require.NoError(t, svc.Abandon(context.Background(), "lea"))
	p, _, err := st.PlanRepo().Active(context.Background(), "lea")
	require.NoError(t, err)
	assert.Nil(t, p)

	// Without an active plan, abandon is a no-op.
	require.NoError(t, svc.Abandon(context.Background(), "lea"))
}

func TestActivePlan_Signals(t *testing.T) {
	svc, st := newTestService(t, llm.NewMockProvider())

	res, err := svc.ActivePlan(context.Background(), "neu")
	require.NoError(t, err)
	assert.Nil(t, res.Plan)
	assert.True(t, res.InsufficientData)

	seedPool(t, st, "lea", 5, 5)
	res, err = svc.ActivePlan(context.Background(), "lea")
	require.NoError(t, err)
	assert.Nil(t, res.Plan)
	assert.False(t, res.InsufficientData)
}
