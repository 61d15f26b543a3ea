package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lernpfad/backend/internal/config"
	"github.com/lernpfad/backend/internal/curriculum"
	"github.com/lernpfad/backend/internal/llm"
	"github.com/lernpfad/backend/internal/plan"
	"github.com/lernpfad/backend/internal/session"
	"github.com/lernpfad/backend/internal/store"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newRouter(t *testing.T, st *store.Store, provider llm.Provider) *gin.Engine {
	t.Helper()
	log := zap.NewNop()
	srv := New(
		session.NewService(st, provider, session.DefaultConfig(), log),
		plan.NewService(st, provider, plan.DefaultConfig(), log),
		curriculum.NewService(st),
		st.SettingsRepo(),
		log,
	)
	cfg := config.Config{
		JWTSecret:   testSecret,
		CORSOrigins: []string{"http://localhost:5173"},
	}
	return srv.Router(cfg)
}

func newTestRouter(t *testing.T, provider llm.Provider) (*gin.Engine, *store.Store) {
	t.Helper()
	st := newTestStore(t)
	return newRouter(t, st, provider), st
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256,
		jwt.RegisteredClaims{Subject: subject}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func doRequest(r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedLearner(t *testing.T, st *store.Store, user string, rows int) int64 {
	t.Helper()
	ctx := context.Background()
	appID, err := st.CatalogRepo().InsertApp(ctx, store.App{
		Name:       "Wortarten",
		TaskSchema: `{"word":"string"}`,
	})
	require.NoError(t, err)
	for i := 0; i < rows; i++ {
		id, err := st.CatalogRepo().InsertContent(ctx, store.ContentItem{
			AppID:   appID,
			Payload: json.RawMessage(fmt.Sprintf(`{"word":"Wort%d"}`, i)),
		})
		require.NoError(t, err)
		require.NoError(t, st.ProgressRepo().Record(ctx, store.ProgressRow{
			UserID: user, AppID: appID, ContentID: id,
			SuccessCount: 1, FailureCount: 2,
		}))
	}
	return appID
}

func TestAuthRequired(t *testing.T) {
	r, _ := newTestRouter(t, llm.NewMockProvider())

	w := doRequest(r, http.MethodGet, "/api/session", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(r, http.MethodGet, "/api/session", "not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthzOpen(t *testing.T) {
	r, _ := newTestRouter(t, llm.NewMockProvider())
	w := doRequest(r, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetSession_InsufficientDataSignal(t *testing.T) {
	r, st := newTestRouter(t, llm.NewMockProvider())
	seedLearner(t, st, "other", 3)

	w := doRequest(r, http.MethodGet, "/api/session", signToken(t, "lea"), "")
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Session          *json.RawMessage `json:"session"`
		InsufficientData bool             `json:"insufficient_data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Nil(t, res.Session)
	assert.True(t, res.InsufficientData)
}

func TestGenerateSession_FullFlow(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(
		`{"topic":"Wortarten","text":"Los geht's","theory":[],"tasks":[{"app_id":1,"content":{"word":"Straße"}}]}`)})
	r, st := newTestRouter(t, mock)
	seedLearner(t, st, "lea", 3)

	token := signToken(t, "lea")
	w := doRequest(r, http.MethodPost, "/api/session", token, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var sess struct {
		SessionID string `json:"session_id"`
		Tasks     []struct {
			ID int64 `json:"id"`
		} `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	require.Len(t, sess.Tasks, 1)

	// Completing via the ids returned over the wire.
	body := fmt.Sprintf(`{"task_ids":[%d]}`, sess.Tasks[0].ID)
	w = doRequest(r, http.MethodPost, "/api/session/tasks/done", token, body)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestGenerateSession_ZeroProgressMapsTo422(t *testing.T) {
	r, _ := newTestRouter(t, llm.NewMockProvider())

	w := doRequest(r, http.MethodPost, "/api/session", signToken(t, "lea"), "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient_data")
}

func TestProviderFailureMapsTo502(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})
	r, st := newTestRouter(t, mock)
	seedLearner(t, st, "lea", 3)

	w := doRequest(r, http.MethodPost, "/api/session", signToken(t, "lea"), "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "provider_error")
}

func TestSwissSpellingFlagRewritesResponse(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(
		`{"topic":"Rechtschreibung","text":"Auf der Straße","theory":[],"tasks":[{"app_id":1,"content":{"word":"Fuß"}}]}`)})
	r, st := newTestRouter(t, mock)
	seedLearner(t, st, "lea", 3)

	w := doRequest(r, http.MethodPost, "/api/session?spelling=ch", signToken(t, "lea"), "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "Strasse")
	assert.Contains(t, w.Body.String(), "Fuss")
	assert.NotContains(t, w.Body.String(), "ß")
}

func TestCompleteSessionTasks_EmptyIDs(t *testing.T) {
	r, _ := newTestRouter(t, llm.NewMockProvider())
	w := doRequest(r, http.MethodPost, "/api/session/tasks/done", signToken(t, "lea"), `{"task_ids":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_error")
}

func TestPlanRoutes(t *testing.T) {
	r, st := newTestRouter(t, llm.NewMockProvider())
	token := signToken(t, "lea")

	// Too few rows: active lookup signals insufficient data.
	w := doRequest(r, http.MethodGet, "/api/plan", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"insufficient_data":true`)

	// Out-of-range day count is rejected before anything runs.
	seedLearner(t, st, "lea", 5)
	w = doRequest(r, http.MethodPost, "/api/plan", token, `{"days":9}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Abandon without an active plan is a quiet no-op.
	w = doRequest(r, http.MethodDelete, "/api/plan", token, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestGeneratePlan_OverHTTP(t *testing.T) {
	st := newTestStore(t)
	seedLearner(t, st, "lea", 5)

	// Content ids 1..5 exist; schedule three of them.
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(
		`{"title":"Plan","description":"d","days":[{"day":1,"focus":"a","task_ids":[1,2,3]}]}`)})
	r := newRouter(t, st, mock)

	token := signToken(t, "lea")
	w := doRequest(r, http.MethodPost, "/api/plan", token, `{"days":1}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doRequest(r, http.MethodGet, "/api/plan", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_days":1`)
}

func TestCurriculumRoute(t *testing.T) {
	r, st := newTestRouter(t, llm.NewMockProvider())
	ctx := context.Background()
	zyklus := 1
	require.NoError(t, st.CurriculumRepo().InsertNode(ctx, store.CurriculumNode{
		Code: "D.5", Fachbereich: "D", Level: "kompetenzbereich", Zyklus: &zyklus, Title: "Sprache im Fokus",
	}))

	token := signToken(t, "lea")
	w := doRequest(r, http.MethodGet, "/api/curriculum?fachbereich=D&max_zyklus=1", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"D.5"`)

	w = doRequest(r, http.MethodGet, "/api/curriculum?max_zyklus=9", token, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetSpelling(t *testing.T) {
	r, st := newTestRouter(t, llm.NewMockProvider())
	token := signToken(t, "lea")

	w := doRequest(r, http.MethodPut, "/api/settings/spelling", token, `{"variant":"ch"}`)
	require.Equal(t, http.StatusNoContent, w.Code)

	variant, err := st.SettingsRepo().SpellingVariant(context.Background(), "lea")
	require.NoError(t, err)
	assert.Equal(t, store.SpellingSwiss, variant)

	w = doRequest(r, http.MethodPut, "/api/settings/spelling", token, `{"variant":"xx"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
