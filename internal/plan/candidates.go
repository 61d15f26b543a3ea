package plan

import (
	"github.com/lernpfad/backend/internal/progress"
	"github.com/lernpfad/backend/internal/store"
	"github.com/samber/lo"
)

// maxUnseenCandidates bounds how many never-attempted content items join
// the pool.
const maxUnseenCandidates = 30

// minCandidates is the pool floor below which plan generation reports
// insufficient data.
const minCandidates = 5

// buildPool tags every progress row as weak or review and appends
// randomly sampled unseen content. Progress rows whose app vanished from
// the catalog are skipped, same as in the weak-area rollup.
func buildPool(rows []store.ProgressRow, unseen []store.ContentItem, apps []store.App) []candidate {
	known := lo.KeyBy(apps, func(a store.App) int64 { return a.ID })

	pool := make([]candidate, 0, len(rows)+len(unseen))
	for _, row := range rows {
		app, ok := known[row.AppID]
		if !ok {
			continue
		}
		prio := priorityReview
		if row.FailureCount > row.SuccessCount || (row.FailureCount > 0 && row.SuccessCount < 3) {
			prio = priorityWeak
		}
		pool = append(pool, candidate{
			ContentID:    row.ContentID,
			AppID:        row.AppID,
			AppName:      app.Name,
			Priority:     prio,
			SuccessCount: row.SuccessCount,
			FailureCount: row.FailureCount,
			Preview:      progress.RenderPreview(row.Payload),
		})
	}

	for _, item := range unseen {
		app, ok := known[item.AppID]
		if !ok {
			continue
		}
		pool = append(pool, candidate{
			ContentID: item.ID,
			AppID:     item.AppID,
			AppName:   app.Name,
			Priority:  priorityUnseen,
			Preview:   progress.RenderPreview(item.Payload),
		})
	}

	return pool
}
