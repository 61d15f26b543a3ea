// Package progress turns a learner's raw question history into the
// weak-area and performance views that drive personalized generation.
package progress

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/lernpfad/backend/internal/scoring"
	"github.com/lernpfad/backend/internal/store"
)

// maxWeakPreviews caps how many weak rows are rendered into a generation
// prompt. This is advisory context for the model, not a scored artifact.
const maxWeakPreviews = 15

// previewMaxLen truncates content previews.
const previewMaxLen = 90

// WeakArea is one question the learner should revisit.
type WeakArea struct {
	AppID        int64
	AppName      string
	ContentID    int64
	SuccessCount int
	FailureCount int
	Mastery      scoring.Mastery
	Priority     float64
	Preview      string
}

// AppStats is the per-app rollup used to phrase the performance summary.
type AppStats struct {
	AppID     int64
	AppName   string
	Attempted int
	Weak      int
	Mastered  int
}

// Summary is the learner's aggregated performance view.
type Summary struct {
	TotalAttempted int
	Apps           []AppStats
	WeakAreas      []WeakArea
}

// BuildSummary computes the rollup and the ranked weak-area preview from
// a learner's progress rows. Rows whose app is missing from the catalog
// are skipped: catalog and progress can be transiently inconsistent after
// catalog edits. A content payload that fails to parse yields an empty
// preview rather than aborting the rollup.
func BuildSummary(rows []store.ProgressRow, apps []store.App, now time.Time) Summary {
	known := lo.KeyBy(apps, func(a store.App) int64 { return a.ID })

	statsByApp := make(map[int64]*AppStats)
	var weak []WeakArea

	for _, row := range rows {
		app, ok := known[row.AppID]
		if !ok {
			continue
		}

		st := statsByApp[row.AppID]
		if st == nil {
			st = &AppStats{AppID: app.ID, AppName: app.Name}
			statsByApp[row.AppID] = st
		}
		st.Attempted++
		if row.FailureCount > row.SuccessCount {
			st.Weak++
		}
		if row.SuccessCount >= 3 && row.FailureCount == 0 {
			st.Mastered++
		}

		if row.FailureCount > 0 || row.SuccessCount < 3 {
			score := scoring.Compute(row.SuccessCount, row.FailureCount, row.LastAttemptAt, now)
			weak = append(weak, WeakArea{
				AppID:        row.AppID,
				AppName:      app.Name,
				ContentID:    row.ContentID,
				SuccessCount: row.SuccessCount,
				FailureCount: row.FailureCount,
				Mastery:      score.Mastery,
				Priority:     score.Priority,
				Preview:      RenderPreview(row.Payload),
			})
		}
	}

	// The storage layer pre-sorts by failure count; the ranking that
	// matters is by priority score.
	sort.SliceStable(weak, func(i, j int) bool {
		return weak[i].Priority > weak[j].Priority
	})
	if len(weak) > maxWeakPreviews {
		weak = weak[:maxWeakPreviews]
	}

	appStats := lo.Values(statsByApp)
	sort.Slice(appStats, func(i, j int) bool { return appStats[i].AppID < appStats[j].AppID })

	return Summary{
		TotalAttempted: len(rows),
		Apps: lo.Map(appStats, func(st *AppStats, _ int) AppStats {
			return *st
		}),
		WeakAreas: weak,
	}
}

// RenderPreview produces a short human-readable rendering of an opaque
// content payload for use in prompts. Returns "" for unparseable content.
func RenderPreview(payload json.RawMessage) string {
	var parsed map[string]any
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return ""
	}

	keys := lo.Keys(parsed)
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		switch v := parsed[k].(type) {
		case string:
			parts = append(parts, fmt.Sprintf("%s: %s", k, v))
		case float64:
			parts = append(parts, fmt.Sprintf("%s: %g", k, v))
		case bool:
			parts = append(parts, fmt.Sprintf("%s: %t", k, v))
		}
	}

	preview := strings.Join(parts, ", ")
	if len(preview) > previewMaxLen {
		preview = preview[:previewMaxLen] + "…"
	}
	return preview
}

// FormatPerformance renders the rollup as the natural-language summary
// embedded in generation prompts.
func FormatPerformance(s Summary) string {
	if s.TotalAttempted == 0 {
		return "The learner has no recorded practice history yet."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The learner has attempted %d questions.\n", s.TotalAttempted)
	for _, app := range s.Apps {
		fmt.Fprintf(&b, "- %s: %d attempted, %d weak, %d mastered\n",
			app.AppName, app.Attempted, app.Weak, app.Mastered)
	}
	return b.String()
}
