package curriculum

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lernpfad/backend/internal/store"
)

func ptr[T any](v T) *T { return &v }

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewService(st), st
}

func seedNodes(t *testing.T, st *store.Store) {
	t.Helper()
	ctx := context.Background()
	nodes := []store.CurriculumNode{
		{Code: "D", Fachbereich: "D", Level: "fachbereich", Title: "Deutsch"},
		{Code: "D.5", Fachbereich: "D", Level: "kompetenzbereich", ParentCode: ptr("D"), Zyklus: ptr(1), Title: "Sprache im Fokus"},
		{Code: "D.5.A", Fachbereich: "D", Level: "kompetenz", ParentCode: ptr("D.5"), Zyklus: ptr(2), Title: "Wortarten kennen"},
		{Code: "MA.1", Fachbereich: "MA", Level: "kompetenzbereich", Zyklus: ptr(1), Title: "Zahl und Variable"},
	}
	for _, n := range nodes {
		require.NoError(t, st.CurriculumRepo().InsertNode(ctx, n))
	}
}

func TestTree_AnonymousDefaults(t *testing.T) {
	svc, st := newTestService(t)
	seedNodes(t, st)

	nodes, err := svc.Tree(context.Background(), "", nil, "")
	require.NoError(t, err)
	require.Len(t, nodes, 4)

	for _, n := range nodes {
		assert.Equal(t, 0, n.Mastery)
		assert.Equal(t, StatusNotStarted, n.Status)
	}
}

func TestTree_OverlayAttached(t *testing.T) {
	svc, st := newTestService(t)
	seedNodes(t, st)
	require.NoError(t, st.CurriculumRepo().UpsertProgress(context.Background(), store.CurriculumProgress{
		UserID:       "lea",
		NodeCode:     "D.5.A",
		MasteryLevel: 3,
		Status:       "started",
	}))

	nodes, err := svc.Tree(context.Background(), "lea", nil, "")
	require.NoError(t, err)

	byCode := map[string]Node{}
	for _, n := range nodes {
		byCode[n.Code] = n
	}
	assert.Equal(t, 3, byCode["D.5.A"].Mastery)
	assert.Equal(t, "started", byCode["D.5.A"].Status)
	assert.Equal(t, 0, byCode["D.5"].Mastery)
	assert.Equal(t, StatusNotStarted, byCode["D.5"].Status)
}

func TestTree_Filters(t *testing.T) {
	svc, st := newTestService(t)
	seedNodes(t, st)

	nodes, err := svc.Tree(context.Background(), "", nil, "MA")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "MA.1", nodes[0].Code)

	// Nodes without a cycle (the fachbereich roots) pass a cycle filter.
	nodes, err = svc.Tree(context.Background(), "", ptr(1), "")
	require.NoError(t, err)
	codes := make([]string, 0, len(nodes))
	for _, n := range nodes {
		codes = append(codes, n.Code)
	}
	assert.ElementsMatch(t, []string{"D", "D.5", "MA.1"}, codes)
}

func TestAppsForCode(t *testing.T) {
	tests := []struct {
		code string
		want []string
	}{
		{"D.5", []string{"satzglieder", "wortarten", "zeitformen"}},
		{"D.5.A", []string{"satzglieder", "wortarten", "zeitformen"}},
		{"D", []string{"grossschreibung", "hoerverstehen", "leseverstehen", "rechtschreibung", "satzglieder", "wortarten", "zeitformen"}},
		{"NMG.4.B", []string{"uhrzeit"}},
		{"BG.1", []string{}},
		// Segment boundaries hold: D.11 is not under D.1.
		{"D.11", []string{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, appsForCode(tt.code), "code %s", tt.code)
	}
}
