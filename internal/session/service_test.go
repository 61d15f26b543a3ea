package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
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

func seedApp(t *testing.T, st *store.Store) int64 {
	t.Helper()
	appID, err := st.CatalogRepo().InsertApp(context.Background(), store.App{
		Name:        "Wortarten",
		Description: "Bestimme die Wortart",
		TaskSchema:  `{"word":"string","answer":"string"}`,
	})
	require.NoError(t, err)
	return appID
}

func seedProgress(t *testing.T, st *store.Store, user string, appID int64, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		contentID, err := st.CatalogRepo().InsertContent(ctx, store.ContentItem{
			AppID:   appID,
			Payload: json.RawMessage(fmt.Sprintf(`{"word":"Haus%d"}`, i)),
		})
		require.NoError(t, err)
		err = st.ProgressRepo().Record(ctx, store.ProgressRow{
			UserID:       user,
			AppID:        appID,
			ContentID:    contentID,
			SuccessCount: 1,
			FailureCount: 2,
		})
		require.NoError(t, err)
	}
}

func validOutput(appID int64) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{
		"topic": "Wortarten üben",
		"text": "Weiter so!",
		"theory": [{"title": "Nomen", "content": "Nomen schreibt man gross."}],
		"tasks": [
			{"app_id": %d, "content": {"word": "Garten", "answer": "Nomen"}},
			{"app_id": %d, "content": {"word": "laufen", "answer": "Verb"}},
			{"app_id": %d, "content": {"word": "schnell", "answer": "Adjektiv"}}
		]
	}`, appID, appID, appID))
}

func TestGenerate_ZeroProgressFails(t *testing.T) {
	mock := llm.NewMockProvider()
	svc, st := newTestService(t, mock)
	seedApp(t, st)

	_, err := svc.Generate(context.Background(), "lea")
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
	assert.Empty(t, mock.Calls, "provider must not be called without history")
}

func TestGenerate_PersistsAndRoundTrips(t *testing.T) {
	svc, st := newTestService(t, nil)
	appID := seedApp(t, st)
	seedProgress(t, st, "lea", appID, 3)

	mock := llm.NewMockProvider(llm.MockResponse{Content: validOutput(appID)})
	svc.provider = mock

	sess, err := svc.Generate(context.Background(), "lea")
	require.NoError(t, err)

	assert.NotEmpty(t, sess.SessionID)
	assert.Equal(t, "Wortarten üben", sess.Topic)
	assert.Equal(t, StatusActive, sess.Status)
	require.Len(t, sess.Tasks, 3)
	for i, task := range sess.Tasks {
		assert.Equal(t, i+1, task.OrderIndex)
		assert.True(t, task.Pristine)
		assert.NotZero(t, task.ID)
	}

	// A fetch straight after generation matches the in-memory result,
	// byte for byte on every content payload.
	active, err := svc.ActiveSession(context.Background(), "lea")
	require.NoError(t, err)
	require.NotNil(t, active.Session)
	assert.Equal(t, sess.SessionID, active.Session.SessionID)
	require.Len(t, active.Session.Tasks, len(sess.Tasks))
	for i := range sess.Tasks {
		assert.Equal(t, string(sess.Tasks[i].Content), string(active.Session.Tasks[i].Content))
		assert.True(t, active.Session.Tasks[i].Pristine)
	}
	assert.Equal(t, sess.Theory, active.Session.Theory)
}

func TestGenerate_FencedOutputParsed(t *testing.T) {
	svc, st := newTestService(t, nil)
	appID := seedApp(t, st)
	seedProgress(t, st, "lea", appID, 3)

	fenced := append([]byte("```json\n"), validOutput(appID)...)
	fenced = append(fenced, []byte("\n```")...)
	svc.provider = llm.NewMockProvider(llm.MockResponse{Content: fenced})

	sess, err := svc.Generate(context.Background(), "lea")
	require.NoError(t, err)
	assert.Len(t, sess.Tasks, 3)
}

func TestGenerate_ProviderFailureNothingPersisted(t *testing.T) {
	svc, st := newTestService(t, nil)
	appID := seedApp(t, st)
	seedProgress(t, st, "lea", appID, 3)
	svc.provider = llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrRateLimit{}})

	_, err := svc.Generate(context.Background(), "lea")
	var provErr *domain.ProviderError
	require.ErrorAs(t, err, &provErr)

	tasks, err := st.SessionRepo().Active(context.Background(), "lea")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestGenerate_UnparseableOutput(t *testing.T) {
	svc, st := newTestService(t, nil)
	appID := seedApp(t, st)
	seedProgress(t, st, "lea", appID, 3)
	svc.provider = llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage("here is your session: {")})

	_, err := svc.Generate(context.Background(), "lea")
	var invErr *domain.InvalidGenerationError
	require.ErrorAs(t, err, &invErr)
	assert.Contains(t, invErr.Raw, "here is your session")

	tasks, err := st.SessionRepo().Active(context.Background(), "lea")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestGenerate_AllTasksEmptyYieldsCongratulation(t *testing.T) {
	svc, st := newTestService(t, nil)
	appID := seedApp(t, st)
	seedProgress(t, st, "lea", appID, 3)
	svc.provider = llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(fmt.Sprintf(
		`{"topic":"t","text":"x","theory":[],"tasks":[{"app_id":%d,"content":{}},{"app_id":%d,"content":null}]}`,
		appID, appID))})

	sess, err := svc.Generate(context.Background(), "lea")
	require.NoError(t, err)
	assert.Empty(t, sess.SessionID)
	assert.Empty(t, sess.Tasks)
	assert.Equal(t, StatusExhausted, sess.Status)

	// Degenerate sessions are never written.
	tasks, err := st.SessionRepo().Active(context.Background(), "lea")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestGenerate_EmptyTasksDiscardedOthersKept(t *testing.T) {
	svc, st := newTestService(t, nil)
	appID := seedApp(t, st)
	seedProgress(t, st, "lea", appID, 3)
	svc.provider = llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(fmt.Sprintf(
		`{"topic":"t","text":"x","theory":[],"tasks":[{"app_id":%d,"content":{}},{"app_id":%d,"content":{"word":"Baum"}}]}`,
		appID, appID))})

	sess, err := svc.Generate(context.Background(), "lea")
	require.NoError(t, err)
	require.Len(t, sess.Tasks, 1)
	assert.Equal(t, 1, sess.Tasks[0].OrderIndex)
	assert.JSONEq(t, `{"word":"Baum"}`, string(sess.Tasks[0].Content))
}

func TestGenerate_PromptCarriesSpellingRuleAndWeakItems(t *testing.T) {
	svc, st := newTestService(t, nil)
	appID := seedApp(t, st)
	seedProgress(t, st, "lea", appID, 3)
	require.NoError(t, st.SettingsRepo().SetSpellingVariant(context.Background(), "lea", store.SpellingSwiss))

	mock := llm.NewMockProvider(llm.MockResponse{Content: validOutput(appID)})
	svc.provider = mock

	_, err := svc.Generate(context.Background(), "lea")
	require.NoError(t, err)

	require.Len(t, mock.Calls, 1)
	prompt := mock.Calls[0].User
	assert.Contains(t, prompt, "'ss' instead of 'ß'")
	assert.Contains(t, prompt, "Wortarten")
	assert.Contains(t, prompt, `shape: {"word":"string","answer":"string"}`)
	assert.Contains(t, prompt, "Weakest items")
}

func TestActiveSession_InsufficientDataSuggestsStarters(t *testing.T) {
	svc, st := newTestService(t, llm.NewMockProvider())
	seedApp(t, st)
	appID2, err := st.CatalogRepo().InsertApp(context.Background(), store.App{Name: "Kommas", TaskSchema: `{}`})
	require.NoError(t, err)
	_ = appID2

	res, err := svc.ActiveSession(context.Background(), "neu")
	require.NoError(t, err)
	assert.Nil(t, res.Session)
	assert.True(t, res.InsufficientData)
	assert.Len(t, res.StarterApps, 2, "suggests at most five, here the whole catalog")
}

func TestActiveSession_ReadyToGenerate(t *testing.T) {
	svc, st := newTestService(t, llm.NewMockProvider())
	appID := seedApp(t, st)
	seedProgress(t, st, "lea", appID, 3)

	res, err := svc.ActiveSession(context.Background(), "lea")
	require.NoError(t, err)
	assert.Nil(t, res.Session)
	assert.False(t, res.InsufficientData)
	assert.Empty(t, res.StarterApps)
}

func TestMarkTasksDone_FlipsStatusToExhausted(t *testing.T) {
	svc, st := newTestService(t, nil)
	appID := seedApp(t, st)
	seedProgress(t, st, "lea", appID, 3)
	svc.provider = llm.NewMockProvider(llm.MockResponse{Content: validOutput(appID)})

	sess, err := svc.Generate(context.Background(), "lea")
	require.NoError(t, err)

	// Work through all but the last task: session stays active.
	var firstTwo []int64
	for _, task := range sess.Tasks[:2] {
		firstTwo = append(firstTwo, task.ID)
	}
	require.NoError(t, svc.MarkTasksDone(context.Background(), "lea", firstTwo))

	res, err := svc.ActiveSession(context.Background(), "lea")
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	assert.Equal(t, StatusActive, res.Session.Status)
	assert.Len(t, res.Session.Tasks, 3, "exhausted tasks stay visible")

	// The last one closes it.
	require.NoError(t, svc.MarkTasksDone(context.Background(), "lea", []int64{sess.Tasks[2].ID}))
	res, err = svc.ActiveSession(context.Background(), "lea")
	require.NoError(t, err)
	assert.Nil(t, res.Session)
}

func TestMarkTasksDone_EmptyIDsRejected(t *testing.T) {
	svc, _ := newTestService(t, llm.NewMockProvider())
	err := svc.MarkTasksDone(context.Background(), "lea", nil)
	var valErr *domain.ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestMarkTasksDone_Idempotent(t *testing.T) {
	svc, st := newTestService(t, nil)
	appID := seedApp(t, st)
	seedProgress(t, st, "lea", appID, 3)
	svc.provider = llm.NewMockProvider(llm.MockResponse{Content: validOutput(appID)})

	sess, err := svc.Generate(context.Background(), "lea")
	require.NoError(t, err)

	id := sess.Tasks[0].ID
	require.NoError(t, svc.MarkTasksDone(context.Background(), "lea", []int64{id}))
	require.NoError(t, svc.MarkTasksDone(context.Background(), "lea", []int64{id}))
	// Unknown ids are ignored too.
	require.NoError(t, svc.MarkTasksDone(context.Background(), "lea", []int64{999999}))
}

func TestGenerate_TheoryEncodingError(t *testing.T) {
	// json.Marshal of TheoryCard values cannot fail; this test pins the
	// assembled theory surviving a nil slice.
	svc, st := newTestService(t, nil)
	appID := seedApp(t, st)
	seedProgress(t, st, "lea", appID, 3)
	svc.provider = llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(fmt.Sprintf(
		`{"topic":"t","text":"x","theory":[],"tasks":[{"app_id":%d,"content":{"word":"Baum"}}]}`, appID))})

	sess, err := svc.Generate(context.Background(), "lea")
	require.NoError(t, err)
	assert.Empty(t, sess.Theory)

	active, err := svc.ActiveSession(context.Background(), "lea")
	require.NoError(t, err)
	require.NotNil(t, active.Session)
	assert.Empty(t, active.Session.Theory)
}

func TestEmptyContent(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"", true},
		{"null", true},
		{`""`, true},
		{"{}", true},
		{"[]", true},
		{"  {}  ", true},
		{`{"word":"Baum"}`, false},
		{`"Baum"`, false},
		{"0", false},
	}
	for _, tt := range tests {
		if got := emptyContent(json.RawMessage(tt.raw)); got != tt.want {
			t.Errorf("emptyContent(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestGenerate_PropagatesContextError(t *testing.T) {
	svc, st := newTestService(t, llm.NewMockProvider())
	appID := seedApp(t, st)
	seedProgress(t, st, "lea", appID, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Generate(ctx, "lea")
	require.Error(t, err)
	if !errors.Is(err, context.Canceled) {
		// Cancellation may surface from any of the parallel reads or from
		// the provider call, always as an error.
		t.Logf("non-canceled error accepted: %v", err)
	}
}
